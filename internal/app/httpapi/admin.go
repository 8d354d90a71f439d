package httpapi

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	app "github.com/Turistty/Simplifique-Application/internal/app"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/middleware"
)

// NewAdminRouter builds the gin router serving the back-office API. Mount it
// behind the guard's admin check; the router itself assumes the caller is
// already authorised.
func NewAdminRouter(application *app.Application) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/admin")
	{
		api.GET("/kpis", kpisHandler(application))

		api.GET("/usuarios", listUsersHandler(application))
		api.POST("/usuarios", createUserHandler(application))
		api.PUT("/usuarios/:id", updateUserHandler(application))
		api.DELETE("/usuarios/:id", deleteUserHandler(application))
		api.POST("/usuarios/:id/pontos", creditPointsHandler(application))
		api.POST("/usuarios/importar", importUsersHandler(application))

		api.GET("/brindes", listItemsHandler(application))
		api.POST("/brindes", createItemHandler(application))
		api.PUT("/brindes/:id", updateItemHandler(application))
		api.DELETE("/brindes/:id", deleteItemHandler(application))
		api.POST("/brindes/:id/estoque", restockHandler(application))

		api.GET("/movimentacoes", listAllMovementsHandler(application))
	}
	return router
}

func kpisHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		users, err := application.Users.List(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items, err := application.Catalog.ListVariations(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		movs, err := application.Orders.ListMovements(ctx, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		processing, confirmed, canceled := 0, 0, 0
		for _, mov := range movs {
			switch mov.Status {
			case order.StatusProcessing:
				processing++
			case order.StatusConfirmed:
				confirmed++
			case order.StatusCanceled:
				canceled++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"usuarios":      len(users),
			"brindes":       len(items),
			"processando":   processing,
			"confirmados":   confirmed,
			"cancelados":    canceled,
			"movimentacoes": len(movs),
		})
	}
}

func listUsersHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := application.Users.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func createUserHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NP    string `json:"np" binding:"required"`
			Senha string `json:"senha" binding:"required"`
			Nome  string `json:"nome" binding:"required"`
			Email string `json:"email"`
			Setor string `json:"departamento"`
			Role  string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		user, err := application.Users.Create(c.Request.Context(), req.NP, req.Senha, req.Nome, req.Email, req.Setor, req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func updateUserHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Nome  string `json:"nome"`
			Email string `json:"email"`
			Setor string `json:"departamento"`
			Role  string `json:"role"`
			Ativo *bool  `json:"ativo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		user, err := application.Users.Update(c.Request.Context(), c.Param("id"), req.Nome, req.Email, req.Setor, req.Role, req.Ativo)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func deleteUserHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := application.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func creditPointsHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantidade int    `json:"quantidade" binding:"required"`
			Origem     string `json:"origem"`
			Observacao string `json:"observacao"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		session, _ := middleware.SessionFromContext(c.Request.Context())
		entry, err := application.Points.Credit(c.Request.Context(), c.Param("id"), req.Quantidade, req.Origem, req.Observacao, session.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func importUsersHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, _, err := c.Request.FormFile("arquivo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "arquivo is required"})
			return
		}
		defer file.Close()

		session, _ := middleware.SessionFromContext(c.Request.Context())
		report, err := application.Users.ImportCSV(c.Request.Context(), file, session.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func listItemsHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := application.Catalog.ListVariations(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func createItemHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item reward.Item
		if err := c.ShouldBindJSON(&item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		created, err := application.Catalog.CreateItem(c.Request.Context(), item)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func updateItemHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid item id"})
			return
		}
		var item reward.Item
		if err := c.ShouldBindJSON(&item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		item.ID = id
		updated, err := application.Catalog.UpdateItem(c.Request.Context(), item)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func deleteItemHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid item id"})
			return
		}
		if err := application.Catalog.DeleteItem(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func restockHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid item id"})
			return
		}
		var req struct {
			Quantidade int `json:"quantidade" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		session, _ := middleware.SessionFromContext(c.Request.Context())
		mov, err := application.Orders.Restock(c.Request.Context(), id, req.Quantidade, session.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, mov)
	}
}

func listAllMovementsHandler(application *app.Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		movs, err := application.Orders.ListMovements(c.Request.Context(), c.Query("usuario"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, movs)
	}
}
