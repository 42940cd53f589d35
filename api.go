package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/tyrestock_backend/models"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"github.com/gin-gonic/gin"
)

// Plain JSON CRUD for the master and transactional records. The web UI in
// front of this backend talks to these.

func statusFor(err error) int {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func listTyresHandler(c *gin.Context) {
	var size *string
	if v := c.Query("size"); v != "" {
		size = &v
	}
	tyres, err := models.GetTyres(c.Request.Context(), size)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tyres)
}

func createTyreHandler(c *gin.Context) {
	var input models.NewTyre
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tyre, err := models.CreateTyre(c.Request.Context(), &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tyre)
}

func updateTyreHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewTyre
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tyre, err := models.UpdateTyre(c.Request.Context(), id, &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tyre)
}

func deleteTyreHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	tyre, err := models.DeleteTyre(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tyre)
}

func listPhonesHandler(c *gin.Context) {
	var brand *string
	if v := c.Query("brand"); v != "" {
		brand = &v
	}
	phones, err := models.GetPhones(c.Request.Context(), brand)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, phones)
}

func createPhoneHandler(c *gin.Context) {
	var input models.NewPhone
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	phone, err := models.CreatePhone(c.Request.Context(), &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, phone)
}

func updatePhoneHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.NewPhone
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	phone, err := models.UpdatePhone(c.Request.Context(), id, &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, phone)
}

func deletePhoneHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	phone, err := models.DeletePhone(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, phone)
}

func listSalesHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	sales, err := models.GetSales(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sales)
}

func createSaleHandler(c *gin.Context) {
	var input models.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sale, err := models.CreateSale(c.Request.Context(), &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func deleteSaleHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sale, err := models.DeleteSale(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sale)
}

func listPaymentsHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	payments, err := models.GetPayments(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payments)
}

func createPaymentHandler(c *gin.Context) {
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := models.CreatePayment(c.Request.Context(), &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func deletePaymentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	payment, err := models.DeletePayment(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payment)
}

func listLossesHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	losses, err := models.GetLosses(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, losses)
}

func createLossHandler(c *gin.Context) {
	var input models.NewLoss
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loss, err := models.CreateLoss(c.Request.Context(), &input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, loss)
}

func deleteLossHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	loss, err := models.DeleteLoss(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loss)
}
