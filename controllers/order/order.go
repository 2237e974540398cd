package ordercontroller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/pagination"
	"github.com/George-Dev-Web/cakes2/services/order"
)

// checkoutRequest mirrors order.CheckoutInput with the delivery date as the
// client sends it.
type checkoutRequest struct {
	CustomerName        string `json:"customer_name"`
	CustomerEmail       string `json:"customer_email"`
	CustomerPhone       string `json:"customer_phone"`
	DeliveryAddress     string `json:"delivery_address"`
	DeliveryDate        string `json:"delivery_date"`
	DeliveryTime        string `json:"delivery_time"`
	PaymentMethod       string `json:"payment_method"`
	SpecialInstructions string `json:"special_instructions"`
}

// parseDeliveryDate accepts a plain date or a full RFC 3339 timestamp.
func parseDeliveryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.Validation("delivery_date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Validation("delivery_date must be formatted as YYYY-MM-DD")
}

func (r checkoutRequest) input() (order.CheckoutInput, error) {
	date, err := parseDeliveryDate(r.DeliveryDate)
	if err != nil {
		return order.CheckoutInput{}, err
	}
	return order.CheckoutInput{
		CustomerName:        r.CustomerName,
		CustomerEmail:       r.CustomerEmail,
		CustomerPhone:       r.CustomerPhone,
		DeliveryAddress:     r.DeliveryAddress,
		DeliveryDate:        date,
		DeliveryTime:        r.DeliveryTime,
		PaymentMethod:       r.PaymentMethod,
		SpecialInstructions: r.SpecialInstructions,
	}, nil
}

// POST /api/orders
//
// Checks out the caller's cart. The tracking token is only ever returned
// here; guests need it to follow their order.
func CreateOrder(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.Validation("Invalid checkout request: %v", err))
			return
		}
		in, err := req.input()
		if err != nil {
			_ = c.Error(err)
			return
		}

		created, err := d.Orders.CreateOrder(c.Request.Context(), auth.Owner(c), in)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":        "Order placed successfully",
			"order":          created,
			"tracking_token": created.TrackingToken,
		})
	}
}

// GET /api/orders
//
// Admins see every order and may filter by ?status; everyone else sees
// their own.
func ListOrders(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := auth.Viewer(c)
		if !v.IsAdmin {
			listOwn(c, d, v.UserID)
			return
		}

		p := pagination.FromQuery(c)
		orders, total, err := d.Orders.ListAll(c.Request.Context(), strings.TrimSpace(c.Query("status")), p)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": p.Meta(total)})
	}
}

// GET /api/orders/my-orders
func MyOrders(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		listOwn(c, d, auth.Viewer(c).UserID)
	}
}

func listOwn(c *gin.Context, d *controllers.Deps, userID uint) {
	if userID == 0 {
		_ = c.Error(apperrors.Authentication("Authentication required"))
		return
	}
	p := pagination.FromQuery(c)
	orders, total, err := d.Orders.ListForUser(c.Request.Context(), userID, p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": p.Meta(total)})
}

// GET /api/orders/:id
func GetOrder(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		o, err := d.Orders.Get(c.Request.Context(), auth.Viewer(c), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// GET /api/orders/:id/history
func GetOrderHistory(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		logs, err := d.Orders.StatusHistory(c.Request.Context(), auth.Viewer(c), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": logs})
	}
}

// GET /api/orders/track/:order_number?token=
func TrackOrder(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := strings.ToUpper(strings.TrimSpace(c.Param("order_number")))
		if number == "" {
			_ = c.Error(apperrors.Validation("Order number is required"))
			return
		}
		tracking, err := d.Orders.TrackByNumber(c.Request.Context(), number, c.Query("token"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, tracking)
	}
}

type statusRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// PUT /api/orders/:id/status
func UpdateOrderStatus(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var req statusRequest
		if err := controllers.BindStrict(c, &req); err != nil {
			_ = c.Error(err)
			return
		}
		status, err := order.ParseStatus(req.Status)
		if err != nil {
			_ = c.Error(err)
			return
		}

		updated, err := d.Orders.UpdateStatus(c.Request.Context(), auth.Viewer(c), id, order.StatusUpdate{
			Status:     status,
			AdminNotes: req.AdminNotes,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		d.Log.Info("order status updated",
			zap.Uint("order_id", updated.ID), zap.String("status", string(updated.Status)))
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": updated})
	}
}

type paymentRequest struct {
	PaymentStatus    string  `json:"payment_status"`
	PaymentReference *string `json:"payment_reference"`
}

// PUT /api/admin/orders/:id/payment
func UpdatePaymentStatus(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var req paymentRequest
		if err := controllers.BindStrict(c, &req); err != nil {
			_ = c.Error(err)
			return
		}
		status, err := order.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			_ = c.Error(err)
			return
		}

		updated, err := d.Orders.UpdatePayment(c.Request.Context(), auth.Viewer(c), id, order.PaymentUpdate{
			Status:    status,
			Reference: req.PaymentReference,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated", "order": updated})
	}
}

var orderExportHeaders = []string{
	"ID", "OrderNumber", "CustomerName", "CustomerEmail", "CustomerPhone",
	"DeliveryDate", "DeliveryTime", "Status", "PaymentMethod", "PaymentStatus",
	"Subtotal", "DeliveryFee", "Tax", "TotalPrice", "Items", "CreatedAt",
}

// GET /api/admin/orders/export[?status=]
func ExportOrdersToExcel(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := strings.TrimSpace(c.Query("status"))
		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to create Excel sheet", err))
			return
		}
		header := sheet.AddRow()
		for _, h := range orderExportHeaders {
			header.AddCell().SetValue(h)
		}

		p := pagination.New(1, pagination.MaxPerPage)
		for {
			orders, total, err := d.Orders.ListAll(c.Request.Context(), status, p)
			if err != nil {
				_ = c.Error(err)
				return
			}
			for _, o := range orders {
				quantity := 0
				for _, item := range o.Items {
					quantity += item.Quantity
				}
				row := sheet.AddRow()
				row.AddCell().SetInt(int(o.ID))
				row.AddCell().SetString(o.OrderNumber)
				row.AddCell().SetString(o.CustomerName)
				row.AddCell().SetString(o.CustomerEmail)
				row.AddCell().SetString(o.CustomerPhone)
				row.AddCell().SetString(o.DeliveryDate.Format("2006-01-02"))
				row.AddCell().SetString(o.DeliveryTime)
				row.AddCell().SetString(string(o.Status))
				row.AddCell().SetString(o.PaymentMethod)
				row.AddCell().SetString(string(o.PaymentStatus))
				row.AddCell().SetString(o.Subtotal.StringFixed(2))
				row.AddCell().SetString(o.DeliveryFee.StringFixed(2))
				row.AddCell().SetString(o.Tax.StringFixed(2))
				row.AddCell().SetString(o.TotalPrice.StringFixed(2))
				row.AddCell().SetInt(quantity)
				row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if int64(p.Page*p.PerPage) >= total {
				break
			}
			p.Page++
		}

		controllers.WriteXLSX(c, file, "orders.xlsx")
	}
}
