package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/gin-gonic/gin"
)

func createDriverHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		var input models.NewDriver
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		driver, err := models.CreateDriver(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, driver)
	}
}

func updateDriverHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.UpdateDriverInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		driver, err := models.UpdateDriver(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, driver)
	}
}

func listDriversHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		drivers, err := models.ListDrivers(c.Request.Context(), models.DriverStatus(c.Query("status")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drivers": drivers})
	}
}

func assignDriverHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.AssignDriverInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		assignedBy := ""
		if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok {
			assignedBy = strconv.Itoa(userId)
		}
		assignment, err := models.AssignDriver(c.Request.Context(), &input, assignedBy)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, assignment)
	}
}

func listAssignmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		filter := models.AssignmentFilter{
			OrderId:    c.Query("order_id"),
			DriverId:   queryInt(c, "driver_id"),
			ActiveOnly: c.Query("active") == "true",
			Limit:      queryInt(c, "limit"),
		}
		assignments, err := models.ListAssignments(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"assignments": assignments})
	}
}

func listAssignmentHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		history, err := models.ListAssignmentHistory(c.Request.Context(), c.Query("order_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	}
}
