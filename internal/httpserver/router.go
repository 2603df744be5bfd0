package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Catalog   *CatalogHTTP
	Cart      *CartHTTP
	Auth      *AuthHTTP
	Checkout  *CheckoutHTTP
	Orders    *OrdersHTTP
	Rates     *RatesHTTP
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.GET("/products", d.Catalog.GetProducts)
	e.GET("/products/:id", d.Catalog.GetProduct)

	cartGroup := e.Group("/cart")
	cartGroup.GET("", d.Cart.GetCart)
	cartGroup.POST("", d.Cart.AddToCart)
	cartGroup.DELETE("", d.Cart.ClearCart)
	cartGroup.DELETE("/items", d.Cart.RemoveFromCart)
	cartGroup.GET("/summary", d.Cart.GetSummary)

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/me", d.Auth.Me)

	e.POST("/checkout", d.Checkout.Confirm)

	e.GET("/exchange-rate", d.Rates.GetRate)
	e.PUT("/exchange-rate", d.Rates.UpdateRate)

	authMW := RequireAuth(d.JWTSecret)
	orders := e.Group("/orders")
	orders.Use(authMW)
	orders.GET("", d.Orders.GetRecentOrders)
	orders.GET("/payments", d.Orders.GetPayments)
}
