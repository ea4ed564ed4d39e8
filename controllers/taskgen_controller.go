package controllers

import (
	"net/http"
	"strings"

	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
)

var taskGenService *services.TaskGenService

func SetTaskGenService(service *services.TaskGenService) {
	taskGenService = service
}

func GenerateTasks(c *gin.Context) {
	var input struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required."})
		return
	}

	tasks := taskGenService.Generate(prompt)
	c.JSON(http.StatusOK, gin.H{
		"prompt": prompt,
		"tasks":  tasks,
		"count":  len(tasks),
	})
}
