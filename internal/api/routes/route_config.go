package routes

import (
	"kyokki-backend/internal/api/handlers"
	"kyokki-backend/internal/middleware"
	"kyokki-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App              *fiber.App
	ReceiptHandler   handlers.ReceiptHandler
	InventoryHandler handlers.InventoryHandler
	ProductHandler   handlers.ProductHandler
	EventHandler     handlers.EventHandler
	Middleware       middleware.Middleware
	JWTService       jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Receipts()
	c.Inventory()
	c.Products()
	c.Events()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) Receipts() {
	receipts := c.App.Group("/api/v1/receipts", c.Middleware.AuthMiddleware(c.JWTService))
	receipts.Post("/scan", c.ReceiptHandler.ScanReceipt)
	receipts.Get("", c.ReceiptHandler.GetReceipts)
	receipts.Get("/:id", c.ReceiptHandler.GetReceiptDetails)
	receipts.Post("/:id/process", c.ReceiptHandler.ProcessReceipt)
	receipts.Post("/:id/confirm", c.ReceiptHandler.ConfirmReceipt)
}

func (c *Config) Inventory() {
	inventory := c.App.Group("/api/v1/inventory", c.Middleware.AuthMiddleware(c.JWTService))
	inventory.Get("", c.InventoryHandler.GetInventory)
	inventory.Get("/:id", c.InventoryHandler.GetInventoryItem)
	inventory.Post("", c.InventoryHandler.CreateInventoryItem)
	inventory.Patch("/:id", c.InventoryHandler.UpdateInventoryItem)
	inventory.Delete("/:id", c.InventoryHandler.DeleteInventoryItem)
	inventory.Post("/:id/consume", c.InventoryHandler.ConsumeInventoryItem)
}

func (c *Config) Products() {
	products := c.App.Group("/api/v1/products", c.Middleware.AuthMiddleware(c.JWTService))
	products.Get("/match", c.ProductHandler.MatchProducts)
	products.Get("/barcode/:barcode", c.ProductHandler.GetProductByBarcode)
}

func (c *Config) Events() {
	c.App.Use("/ws", c.EventHandler.RequireUpgrade, c.Middleware.AuthMiddleware(c.JWTService))
	c.App.Get("/ws", c.EventHandler.Stream())
}
