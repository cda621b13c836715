package voicestage

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Server is the web surface: an upload page, the generate and clear
// actions, and static serving of generated clips.
type Server struct {
	cfg      Config
	registry *Registry
	ws       *Workspace
	factory  SynthesizerFactory
}

func NewServer(cfg Config, registry *Registry, ws *Workspace, factory SynthesizerFactory) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		ws:       ws,
		factory:  factory,
	}
}

type pageData struct {
	Status    string
	Errors    []string
	Artifacts []Artifact
	CanClear  bool
}

const pageHTML = `<!DOCTYPE html>
<html>
<head><title>Voicestage Production Tool</title></head>
<body>
<h1>&#127908; Voicestage Production Tool</h1>
<p>Upload a script of "Character: dialogue" lines. Inline director notes in [brackets] are stripped before synthesis.</p>
<form method="post" action="/generate" enctype="multipart/form-data">
  <input type="file" name="script" accept=".txt">
  <button type="submit">Generate Voice-over</button>
</form>
<form method="post" action="/clear">
  <button type="submit">Clear Generated Files</button>
</form>
<h2>Status</h2>
<p>{{.Status}}</p>
{{if .Errors}}
<h3>Errors</h3>
<ul>
{{range .Errors}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
{{if .Artifacts}}
<h2>Generated Audio</h2>
{{range .Artifacts}}<p><strong>{{.Character}}:</strong> {{.Dialogue}}</p>
<audio controls src="/clips/{{.Filename}}"></audio><br><br>
{{end}}
{{end}}
</body>
</html>
`

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.New("page").Parse(pageHTML)))

	router.GET("/", s.index)
	router.POST("/generate", s.generate)
	router.POST("/clear", s.clear)
	router.GET("/voices", s.voices)
	router.GET("/healthz", s.health)
	router.Static("/clips", s.ws.Dir())

	return router
}

func (s *Server) index(c *gin.Context) {
	s.render(c, http.StatusOK, pageData{Status: "Waiting for script..."})
}

func (s *Server) generate(c *gin.Context) {
	file, err := c.FormFile("script")
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errNoScript)
		return
	}

	f, err := file.Open()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("read script file failed: %w", err))
		return
	}
	defer f.Close()
	script, err := io.ReadAll(f)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("read script file failed: %w", err))
		return
	}

	// One orchestrator per request keeps runs isolated.
	orch := NewOrchestrator(s.cfg, s.registry, s.ws, s.factory)
	result, err := orch.Run(c.Request.Context(), file.Filename, script)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errNoScript) || errors.Is(err, errInvalidFileType) {
			status = http.StatusBadRequest
		}
		s.renderError(c, status, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}
	s.render(c, http.StatusOK, pageData{
		Status:    result.Summary(),
		Errors:    result.Errors,
		Artifacts: result.Artifacts,
		CanClear:  result.Generated > 0,
	})
}

func (s *Server) clear(c *gin.Context) {
	deleted, err := s.ws.Clear()
	switch {
	case errors.Is(err, errWorkspaceMissing):
		s.render(c, http.StatusOK, pageData{Status: "Output directory does not exist."})
	case err != nil:
		s.renderError(c, http.StatusInternalServerError, err)
	default:
		s.render(c, http.StatusOK, pageData{Status: fmt.Sprintf("Cleared %d files.", deleted)})
	}
}

func (s *Server) voices(c *gin.Context) {
	characters := s.registry.Characters()
	cast := s.registry.Cast()
	list := make([]castItem, 0, len(characters))
	for _, name := range characters {
		list = append(list, castItem{Character: name, Voice: cast[name]})
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"model":      s.cfg.Model,
		"characters": s.registry.Len(),
		"output_dir": s.ws.Dir(),
	})
}

func (s *Server) render(c *gin.Context, status int, data pageData) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{"status": data.Status, "errors": data.Errors, "artifacts": data.Artifacts})
		return
	}
	c.HTML(status, "page", data)
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	appLog.Error().Err(err).Int("status", status).Msg("request failed")
	s.render(c, status, pageData{Status: err.Error()})
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
