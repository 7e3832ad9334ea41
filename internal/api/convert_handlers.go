package api

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filewarp/filewarp/internal/format"
	"github.com/filewarp/filewarp/internal/pipeline"
	"github.com/filewarp/filewarp/internal/util"
)

func (s *Server) convertSingle(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > s.cfg.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File too large (max %dMB)", s.cfg.MaxFileSize/(1024*1024))})
		return
	}

	target := format.Normalize(c.PostForm("target"))
	quality := parseIntDefault(c.PostForm("quality"), 80)

	req, err := s.saveUpload(c, file, target, quality)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	result, err := s.orch.ConvertFile(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.deliver(c, result.OutputPath, result.DownloadName, result.CleanupPaths, result.Metadata)
}

func (s *Server) convertBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	if len(files) > s.cfg.MaxBatchFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Too many files (max %d)", s.cfg.MaxBatchFiles)})
		return
	}

	target := format.Normalize(c.PostForm("target"))
	quality := parseIntDefault(c.PostForm("quality"), 80)

	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Target format is required"})
		return
	}

	reqs := make([]*pipeline.Request, 0, len(files))
	for _, file := range files {
		if file.Size > s.cfg.MaxFileSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File too large (max %dMB)", s.cfg.MaxFileSize/(1024*1024))})
			s.backgroundCleanup(reqs)
			return
		}
		req, err := s.saveUpload(c, file, target, quality)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
			s.backgroundCleanup(reqs)
			return
		}
		reqs = append(reqs, req)
	}

	report := s.orch.ConvertBatch(c.Request.Context(), reqs)

	c.JSON(http.StatusOK, gin.H{
		"message":      "Batch conversion completed",
		"results":      report.Results,
		"totalFiles":   report.TotalFiles,
		"successCount": report.SuccessCount,
	})

	// Cleanup is decoupled from the response so latency is not tied to
	// filesystem I/O.
	s.orch.Cleaner().Clean(report.CleanupPaths...)
}

func (s *Server) download(c *gin.Context) {
	// Param is a generated output name; Base guards against traversal.
	filename := filepath.Base(c.Param("filename"))
	path := filepath.Join(s.cfg.OutputDir, filename)

	if !fileExists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	s.deliver(c, path, filename, nil, nil)
}

// saveUpload writes the multipart file under a request-unique name and
// wraps it into a pipeline request.
func (s *Server) saveUpload(c *gin.Context, file *multipart.FileHeader, target string, quality int) (*pipeline.Request, error) {
	dst := filepath.Join(s.cfg.UploadDir, util.UniqueName(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Printf("save upload failed: %v", err)
		return nil, err
	}
	return &pipeline.Request{
		ID:           uuid.NewString(),
		InputPath:    dst,
		OriginalName: file.Filename,
		Size:         file.Size,
		Target:       target,
		Overrides:    format.Options{Quality: quality},
	}, nil
}

// backgroundCleanup discards uploads already saved when a batch request
// is rejected partway through admission.
func (s *Server) backgroundCleanup(reqs []*pipeline.Request) {
	paths := make([]string, 0, len(reqs))
	for _, r := range reqs {
		paths = append(paths, r.InputPath)
	}
	s.orch.Cleaner().Clean(paths...)
}
