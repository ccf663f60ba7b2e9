package processing

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ImageData struct {
	MediaType string
	Data      string // Base64 encoded string
}

var imageClient = &http.Client{Timeout: 15 * time.Second}

// ProcessImageURL takes an image URL (standard http/https or data URI) and
// returns the media type and base64 encoded data, so adapters whose upstream
// only takes inline images can accept both forms uniformly.
func ProcessImageURL(url string) (*ImageData, error) {
	if strings.HasPrefix(url, "data:") {
		return parseDataURI(url)
	}
	return fetchRemoteImage(url)
}

func parseDataURI(uri string) (*ImageData, error) {
	// format: data:[<media type>][;base64],<data>
	comma := strings.Index(uri, ",")
	if comma == -1 {
		return nil, fmt.Errorf("invalid data URI")
	}

	meta := uri[:comma]
	data := uri[comma+1:]

	mediaType := "text/plain"
	parts := strings.Split(meta, ";")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "data:") && len(parts[0]) > 5 {
		mediaType = parts[0][5:]
	}

	isBase64 := false
	for _, p := range parts {
		if p == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return nil, fmt.Errorf("only base64 data URIs are supported for images")
	}

	return &ImageData{
		MediaType: mediaType,
		Data:      data,
	}, nil
}

func fetchRemoteImage(url string) (*ImageData, error) {
	resp, err := imageClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &ImageData{
		MediaType: contentType,
		Data:      base64.StdEncoding.EncodeToString(body),
	}, nil
}
