package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language,omitempty"`
}

type TranslateResponse struct {
	TranslatedText     string `json:"translated_text"`
	SourceLanguage     string `json:"source_language"`
	TargetLanguage     string `json:"target_language"`
	SourceLanguageName string `json:"source_language_name"`
	TargetLanguageName string `json:"target_language_name"`
}

type DetectLanguageResponse struct {
	Language     string  `json:"language"`
	LanguageName string  `json:"language_name"`
	Confidence   float64 `json:"confidence"`
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type RAGRequest struct {
	Query     string `json:"query"`
	SearchWeb bool   `json:"search_web,omitempty"`
}

type RAGResponse struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`
}

func (c *Client) Translate(ctx context.Context, req TranslateRequest) (TranslateResponse, error) {
	var resp TranslateResponse
	err := c.doJSON(ctx, http.MethodPost, "/ai/translate", req, &resp)
	return resp, err
}

func (c *Client) DetectLanguage(ctx context.Context, text string) (DetectLanguageResponse, error) {
	var resp DetectLanguageResponse
	err := c.doJSON(ctx, http.MethodPost, "/ai/detect-language", map[string]string{"text": text}, &resp)
	return resp, err
}

func (c *Client) SupportedLanguages(ctx context.Context) ([]Language, error) {
	var resp struct {
		Languages []Language `json:"languages"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/ai/languages", nil, &resp)
	return resp.Languages, err
}

func (c *Client) RAGQuery(ctx context.Context, req RAGRequest) (RAGResponse, error) {
	var resp RAGResponse
	err := c.doJSON(ctx, http.MethodPost, "/ai/rag", req, &resp)
	return resp, err
}

// progressReader reports whole-percentage upload progress as the request
// body is consumed.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	progress func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.progress != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.progress(pct)
		}
	}
	return n, err
}

// UploadDocument sends a file for RAG ingestion as multipart form data.
// onProgress, when non-nil, receives the upload percentage as it advances.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader, onProgress func(percent int)) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	body := &progressReader{r: &buf, total: int64(buf.Len()), progress: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/rag/upload", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = body.total

	var out map[string]any
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
