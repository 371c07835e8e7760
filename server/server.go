package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/krau/bloodgroup/service"
)

//go:embed web
var webFS embed.FS

type Options struct {
	// Model may be nil; /predict then reports that no model is loaded.
	Model             service.Model
	Logger            *zap.Logger
	Token             string
	UploadDir         string
	MaxUploadSize     int64
	AllowedExtensions []string
}

type Server struct {
	model      service.Model
	log        *zap.Logger
	token      string
	uploadDir  string
	maxUpload  int64
	extensions []string
	validator  *service.Validator
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(os.TempDir(), "bloodgroup-uploads")
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = service.DefaultExtensions
	}
	return &Server{
		model:      opts.Model,
		log:        opts.Logger,
		token:      opts.Token,
		uploadDir:  opts.UploadDir,
		maxUpload:  opts.MaxUploadSize,
		extensions: opts.AllowedExtensions,
		validator:  service.NewValidator(opts.AllowedExtensions),
	}
}

// Router wires middleware and routes onto a new gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(RequestID())
	r.Use(Logger(s.log))
	r.Use(Recovery(s.log))
	r.Use(CORS())
	r.Use(Metrics())

	r.SetHTMLTemplate(template.Must(template.ParseFS(webFS, "web/index.html")))
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.Index)
	predict := []gin.HandlerFunc{s.requireModel}
	if s.maxUpload > 0 {
		predict = append(predict, BodyLimit(s.maxUpload))
	}
	predict = append(predict, s.Predict)
	r.POST("/predict", predict...)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
