package routes

import (
	"net/http"

	"github.com/toc8730/StepSync/controllers"
	"github.com/toc8730/StepSync/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, jwtSecret []byte) {
	// Public routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/register", controllers.Register)
	r.POST("/login", controllers.Login)
	r.POST("/login/google", controllers.LoginGoogle)

	// Protected routes
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		auth.GET("/me", controllers.Me)
		auth.POST("/account/credentials", controllers.UpdateCredentials)
		auth.POST("/account/google/switch", controllers.SwitchGoogle)

		auth.GET("/profile", controllers.GetProfile)
		auth.GET("/profile/family", controllers.GetFamilyProfile)
		auth.POST("/profile/block/add", controllers.AddBlock)
		auth.POST("/profile/block/edit", controllers.EditBlock)
		auth.POST("/profile/block/delete", controllers.DeleteBlock)
		auth.GET("/profile/preferences", controllers.GetPreferences)
		auth.POST("/profile/preferences", controllers.UpdatePreferences)

		auth.POST("/ai/tasks", controllers.GenerateTasks)
	}

	family := r.Group("/family")
	family.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		family.POST("/create", controllers.CreateFamily)
		family.POST("/join", controllers.JoinFamily)
		family.POST("/update", controllers.UpdateFamily)
		family.POST("/invite", controllers.SendInvite)
		family.GET("/invite/my", controllers.MyInvites)
		family.POST("/invite/respond", controllers.RespondInvite)
		family.GET("/members", controllers.FamilyMembers)
		family.POST("/member/remove", controllers.RemoveMember)
		family.POST("/leave", controllers.LeaveFamily)
		family.GET("/leave/requests", controllers.LeaveRequests)
		family.POST("/leave/requests/handle", controllers.HandleLeaveRequest)
		family.POST("/master/transfer", controllers.TransferMaster)
	}
}
