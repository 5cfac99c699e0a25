package mcpserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/ingest"
)

const maxChunkSize = 32 << 20 // 32 MB

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func (s *Server) addChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data := []byte(content)
	gz := false
	if strings.HasPrefix(content, "data:") {
		if data, err = decodeDataURI(content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		gz = true
	}
	if len(data) > maxChunkSize {
		return mcp.NewToolResultError(fmt.Sprintf("chunk too large: %d bytes (max %d)", len(data), maxChunkSize)), nil
	}

	name := chunkName(req.GetString("name", ""), gz)
	if _, readErr := s.store.Read(name); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunk already exists: %s", name)), nil
	}
	if err := s.store.Write(name, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save chunk: %v", err)), nil
	}

	var stats *builder.ChunkStats
	_, err = ingest.Sync(ctx, s.svc, s.ledger, s.store, filepath.Base(name), slog.Default(), func(st builder.ChunkStats) {
		if st.Name == name {
			stats = &st
		}
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if stats == nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunk %s was not ingested", name)), nil
	}
	return jsonResult(stats)
}

// chunkName sanitizes name into a file name the ingester picks up.
func chunkName(name string, gz bool) string {
	ext := ".json"
	if gz {
		ext = ".json.gz"
	}
	name = safeFilenameRe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".json")
	if !strings.HasPrefix(name, "chunk-") {
		name = "chunk-" + name
	}
	return name + ext
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI holding a
// gzipped chunk and checks that it decompresses.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(rest[:commaIdx], ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(rest[commaIdx+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("data URI is not gzip: %w", err)
	}
	defer zr.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(zr, maxChunkSize+1)); err != nil {
		return nil, fmt.Errorf("data URI is not gzip: %w", err)
	}
	return data, nil
}
