package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/unimarket/image-uploader/internal/api/handlers/upload"
	"github.com/unimarket/image-uploader/internal/middleware"
)

func Setup(h *upload.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/uploads", h.Stage)     // stage a batch of selected files
	api.POST("/uploads/crop", h.Crop) // confirm crop gesture for the active task
	api.GET("/uploads", h.State)      // current queue snapshot
	api.DELETE("/uploads", h.Cancel)  // clear the queue

	return r
}
