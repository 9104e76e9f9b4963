package service

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

type fakeGemini struct {
	mu sync.Mutex

	uploadErr   error
	uploadState genai.FileState
	pollStates  []genai.FileState
	getErr      error
	deleteErr   error

	response *genai.GenerateContentResponse
	genErr   error

	uploads   []string
	polls     int
	deleted   []string
	calls     int
	lastModel string
	lastCfg   *genai.GenerateContentConfig
	lastInput []*genai.Content
}

func (f *fakeGemini) UploadFile(_ context.Context, path, mimeType string) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	state := f.uploadState
	if state == "" {
		state = genai.FileStateActive
	}
	return &genai.File{Name: "files/doc-1", URI: "https://files.example/doc-1", MIMEType: mimeType, State: state}, nil
}

func (f *fakeGemini) GetFile(_ context.Context, name string) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	state := genai.FileStateProcessing
	if f.polls < len(f.pollStates) {
		state = f.pollStates[f.polls]
	}
	f.polls++
	return &genai.File{Name: name, URI: "https://files.example/doc-1", MIMEType: "application/pdf", State: state}, nil
}

func (f *fakeGemini) DeleteFile(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return f.deleteErr
}

func (f *fakeGemini) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastModel = model
	f.lastCfg = cfg
	f.lastInput = contents
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.response, nil
}

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: reason,
		}},
	}
}
