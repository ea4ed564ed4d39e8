package controllers

import (
	"net/http"
	"strings"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
)

var scheduleService *services.ScheduleService

func SetScheduleService(service *services.ScheduleService) {
	scheduleService = service
}

func GetProfile(c *gin.Context) {
	profile, err := scheduleService.Profile(currentUsername(c), c.Query("target_child"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func GetFamilyProfile(c *gin.Context) {
	profile, err := scheduleService.FamilyProfile(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type blockPayload struct {
	Block         *models.ScheduleBlock `json:"block"`
	OldBlock      *models.ScheduleBlock `json:"old_block"`
	NewBlock      *models.ScheduleBlock `json:"new_block"`
	ApplyToFamily bool                  `json:"apply_to_family"`
	FamilyTag     string                `json:"family_tag"`
	TargetChild   string                `json:"target_child"`
	Index         *int                  `json:"index"`
}

func AddBlock(c *gin.Context) {
	var input blockPayload
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Block == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'block'"})
		return
	}

	if input.ApplyToFamily {
		tag, err := scheduleService.AddFamilyBlock(currentUsername(c), *input.Block, input.FamilyTag)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Family task added", "family_tag": tag})
		return
	}

	if err := scheduleService.AddBlock(currentUsername(c), *input.Block, input.TargetChild); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Block add successful"})
}

func EditBlock(c *gin.Context) {
	var input blockPayload
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.OldBlock == nil || input.NewBlock == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'old_block' or 'new_block'"})
		return
	}

	if input.ApplyToFamily {
		tag := strings.TrimSpace(input.FamilyTag)
		if tag == "" {
			tag = strings.TrimSpace(input.OldBlock.FamilyTag)
		}
		if tag == "" {
			tag = strings.TrimSpace(input.NewBlock.FamilyTag)
		}
		if tag == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Family task identifier missing"})
			return
		}
		if err := scheduleService.EditFamilyBlock(currentUsername(c), tag, *input.NewBlock); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Family block edit successful"})
		return
	}

	if err := scheduleService.EditBlock(currentUsername(c), *input.OldBlock, *input.NewBlock, input.TargetChild); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Block edit successful"})
}

func DeleteBlock(c *gin.Context) {
	var input blockPayload
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.ApplyToFamily {
		tag := strings.TrimSpace(input.FamilyTag)
		if tag == "" && input.Block != nil {
			tag = strings.TrimSpace(input.Block.FamilyTag)
		}
		if tag == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Family task identifier missing"})
			return
		}
		if err := scheduleService.DeleteFamilyBlock(currentUsername(c), tag); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Family task removed"})
		return
	}

	if input.Index != nil {
		removed, err := scheduleService.DeleteBlockAt(currentUsername(c), *input.Index, input.TargetChild)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deleted", "deleted": removed})
		return
	}

	if input.Block != nil {
		removed, err := scheduleService.DeleteBlock(currentUsername(c), *input.Block, input.TargetChild)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deleted", "deleted": removed})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Provide 'index' or 'block'"})
}

func GetPreferences(c *gin.Context) {
	prefs, err := scheduleService.Preferences(currentUsername(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func UpdatePreferences(c *gin.Context) {
	var input struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := scheduleService.SetTheme(currentUsername(c), input.Theme)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}
