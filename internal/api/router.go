package api

import (
	"github.com/davidlin/dataport/internal/api/handler"
	"github.com/davidlin/dataport/internal/api/middleware"
	"github.com/davidlin/dataport/internal/repository"
	"github.com/davidlin/dataport/internal/workflow"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the local status server. It is a read-only window
// into the live snapshot store and the session journal while a long import
// runs; it mutates nothing.
func SetupRouter(
	store *workflow.SnapshotStore,
	sessions *repository.SessionRepository,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	statusHandler := handler.NewStatusHandler(store, sessions)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs/:id", statusHandler.GetJob)
		v1.GET("/jobs/:id/progress", statusHandler.GetProgress)
		v1.GET("/sessions", statusHandler.ListSessions)
	}

	return r
}
