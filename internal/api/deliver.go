package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// deliver streams a converted artifact to the client, then removes it
// along with any extra transient paths exactly once, after the stream
// has fully closed or errored. No converted file outlives its single
// download.
func (s *Server) deliver(c *gin.Context, outputPath, downloadName string, extraCleanup []string, metadata any) {
	fi, err := os.Stat(outputPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Output file not found"})
		return
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(outputPath); err == nil {
		contentType = mt.String()
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(fi.Size(), 10))
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			c.Header("X-File-Metadata", string(raw))
		}
	}

	f, err := os.Open(outputPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Output file not found"})
		return
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		log.Printf("delivery stream error for %s: %v", downloadName, err)
	}
	f.Close()

	// Single teardown point for both the success and the error path.
	s.orch.Cleaner().Clean(append([]string{outputPath}, extraCleanup...)...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
