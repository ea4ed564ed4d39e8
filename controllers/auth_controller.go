package controllers

import (
	"net/http"

	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
)

var authService *services.AuthService

func SetAuthService(service *services.AuthService) {
	authService = service
}

func Register(c *gin.Context) {
	var input struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Display     string `json:"displayName"`
		Password    string `json:"password"`
		AccountType string `json:"account_type"`
		Type        string `json:"type"`
		Role        string `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Display
	}
	role := input.AccountType
	if role == "" {
		role = input.Type
	}
	if role == "" {
		role = input.Role
	}

	user, err := authService.Register(input.Username, displayName, input.Password, role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "User registered successfully",
		"username":     user.Username,
		"display_name": user.DisplayName,
		"role":         user.Role,
	})
}

func Login(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := authService.Login(input.Username, input.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"token":        token,
		"username":     user.Username,
		"display_name": user.DisplayLabel(),
		"role":         user.Role,
	})
}

func LoginGoogle(c *gin.Context) {
	var input struct {
		IDToken       string `json:"id_token"`
		AccessToken   string `json:"access_token"`
		PreferredRole string `json:"preferred_role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := authService.LoginGoogle(c.Request.Context(), input.IDToken, input.AccessToken, input.PreferredRole)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"token":        token,
		"username":     user.Username,
		"display_name": user.DisplayLabel(),
		"role":         user.Role,
	})
}

func Me(c *gin.Context) {
	summary, err := authService.Me(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func UpdateCredentials(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"current_password"`
		Password        string `json:"password"`
		NewUsername     string `json:"new_username"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
		Confirm         string `json:"new_password_confirm"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current := input.CurrentPassword
	if current == "" {
		current = input.Password
	}
	confirm := input.ConfirmPassword
	if confirm == "" {
		confirm = input.Confirm
	}

	user, token, changed, err := authService.UpdateCredentials(currentUsername(c), current, input.NewUsername, input.NewPassword, confirm)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Account updated successfully.",
		"username": user.Username,
		"token":    token,
		"changed":  changed,
	})
}

func SwitchGoogle(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"current_password"`
		Password        string `json:"password"`
		IDToken         string `json:"id_token"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current := input.CurrentPassword
	if current == "" {
		current = input.Password
	}

	user, token, err := authService.SwitchGoogle(c.Request.Context(), currentUsername(c), current, input.IDToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Google account updated.",
		"username": user.Username,
		"email":    user.Email,
		"token":    token,
	})
}
