// Package server exposes card scanning over HTTP.
package server

import (
	"errors"
	"image"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"beancard/internal/card"
	"beancard/internal/data"
	"beancard/internal/pipeline"
	"beancard/internal/preprocess"
	"beancard/internal/writer"
)

type Server struct {
	pre        *preprocess.Preprocessor
	processor  *pipeline.Processor
	writer     *writer.CSVWriter[data.BeanCard]
	outputFile string
}

func New(pre *preprocess.Preprocessor, processor *pipeline.Processor, w *writer.CSVWriter[data.BeanCard], outputFile string) *Server {
	return &Server{pre: pre, processor: processor, writer: w, outputFile: outputFile}
}

type scanResponse struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Corners   []image.Point  `json:"corners,omitempty"`
	Fragments []string       `json:"fragments,omitempty"`
	Card      *data.BeanCard `json:"card,omitempty"`
	Appended  bool           `json:"appended"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) Routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/cards", s.scanCard)
}

func NewRouter(s *Server) *gin.Engine {
	r := gin.Default()
	s.Routes(r)
	return r
}

func (s *Server) scanCard(c *gin.Context) {
	resp := scanResponse{ID: uuid.NewString()}

	fh, err := c.FormFile("image")
	if err != nil {
		resp.Error = "multipart field 'image' is required"
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	resp.Filename = fh.Filename

	f, err := fh.Open()
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	defer f.Close()

	img, err := s.pre.Decode(f)
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	scan, err := s.processor.Scan(c.Request.Context(), img, fh.Filename)
	if scan != nil {
		resp.Corners = scan.Card.Corners.Points()
		resp.Fragments = scan.Lines
		resp.Card = scan.Bean
	}
	if err != nil {
		log.Printf("scan %s (%s) failed: %v", resp.ID, fh.Filename, err)
		resp.Error = err.Error()
		c.JSON(statusFor(err), resp)
		return
	}

	if appendRow, _ := strconv.ParseBool(c.Query("append")); appendRow {
		if err := s.writer.WriteToFile([]data.BeanCard{*scan.Bean}, s.outputFile); err != nil {
			resp.Error = err.Error()
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		resp.Appended = true
	}

	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, preprocess.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, card.ErrCardNotFound),
		errors.Is(err, card.ErrDegenerateQuad),
		errors.Is(err, data.ErrTooFewFragments):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
