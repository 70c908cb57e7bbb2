package server

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ironsheep/medilabel-reader/internal/labels"
	"github.com/ironsheep/medilabel-reader/internal/logging"
)

// uploadField is the multipart field carrying the label photo.
const uploadField = "file"

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
}

// OCRInfoResponse is returned by GET /api/v1/ocr.
type OCRInfoResponse struct {
	Engine    string         `json:"engine"`
	Version   string         `json:"version,omitempty"`
	Languages string         `json:"languages,omitempty"`
	Workers   int            `json:"workers,omitempty"`
	Profile   labels.Profile `json:"profile"`
	LLM       string         `json:"llm"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Message: "Server is Healthy!", Version: s.version})
}

func (s *Server) handleOCRInfo(c *fiber.Ctx) error {
	resp := OCRInfoResponse{
		Engine:  "tesseract",
		Profile: s.service.Profile(),
		LLM:     s.llmBackend,
	}
	if resp.LLM == "" {
		resp.LLM = "none"
	}
	if s.engine != nil {
		resp.Languages = s.engine.Languages()
		resp.Workers = s.engine.Workers()
		version, err := s.engine.Version(c.UserContext())
		if err != nil {
			return err
		}
		resp.Version = version
	}
	return c.JSON(resp)
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	data, err := readUpload(c)
	if err != nil {
		return err
	}

	analysis, err := s.service.Analyze(c.UserContext(), data)
	if err != nil {
		return err
	}

	logging.FromContext(s.log, c.UserContext()).
		WithField("medicine_name", analysis.MedicineName).
		Info("label analyzed")
	return c.JSON(analysis)
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	data, err := readUpload(c)
	if err != nil {
		return err
	}

	extraction, err := s.service.Extract(c.UserContext(), data)
	if err != nil {
		return err
	}
	return c.JSON(extraction)
}

func (s *Server) handleAnnotate(c *fiber.Ctx) error {
	data, err := readUpload(c)
	if err != nil {
		return err
	}

	result, err := s.service.Annotate(c.UserContext(), data)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, result.MimeType)
	return c.Send(result.PNG)
}

// readUpload returns the bytes of the uploaded image.
func readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return nil, ErrMissingFile
	}
	if !strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "image/") {
		return nil, ErrNotAnImage
	}
	if fh.Size == 0 {
		return nil, ErrEmptyFile
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}
