package controllers

import (
	"net/http"

	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
)

var familyService *services.FamilyService

func SetFamilyService(service *services.FamilyService) {
	familyService = service
}

func CreateFamily(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		FamilyID string `json:"family_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	familyID, err := familyService.Create(currentUsername(c), input.Name, input.Password, input.FamilyID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Family created", "family_id": familyID})
}

func JoinFamily(c *gin.Context) {
	var input struct {
		FamilyID string `json:"family_id"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := familyService.Join(currentUsername(c), input.FamilyID, input.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined family successfully"})
}

func UpdateFamily(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"current_password"`
		Password        string `json:"password"`
		Name            string `json:"name"`
		NewName         string `json:"new_name"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current := input.CurrentPassword
	if current == "" {
		current = input.Password
	}
	name := input.Name
	if name == "" {
		name = input.NewName
	}

	family, changed, err := familyService.Update(currentUsername(c), current, name, input.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Family updated.",
		"family":  gin.H{"name": family.Name, "identifier": family.FamilyID},
		"changed": changed,
	})
}

func SendInvite(c *gin.Context) {
	var input struct {
		ChildUsername string `json:"child_username"`
		Username      string `json:"username"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	child := input.ChildUsername
	if child == "" {
		child = input.Username
	}

	message, err := familyService.Invite(currentUsername(c), child)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func MyInvites(c *gin.Context) {
	invites, err := familyService.MyInvites(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func RespondInvite(c *gin.Context) {
	var input struct {
		FamilyID string `json:"family_id"`
		Action   string `json:"action"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := familyService.RespondInvite(currentUsername(c), input.FamilyID, input.Action)
	if err != nil {
		fail(c, err)
		return
	}
	response := gin.H{"message": message}
	if message == "Welcome to the family!" {
		response["family_id"] = input.FamilyID
	}
	c.JSON(http.StatusOK, response)
}

func FamilyMembers(c *gin.Context) {
	members, err := familyService.Members(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func RemoveMember(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := familyService.RemoveMember(currentUsername(c), input.Username); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed " + input.Username + " from family"})
}

func LeaveFamily(c *gin.Context) {
	message, err := familyService.Leave(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func LeaveRequests(c *gin.Context) {
	requests, err := familyService.PendingLeaveRequests(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func HandleLeaveRequest(c *gin.Context) {
	var input struct {
		ChildUsername string `json:"child_username"`
		Action        string `json:"action"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := familyService.HandleLeaveRequest(currentUsername(c), input.ChildUsername, input.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func TransferMaster(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := familyService.TransferMaster(currentUsername(c), input.Username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
