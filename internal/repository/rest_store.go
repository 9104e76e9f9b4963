package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/fadilmartias/exam-grader/internal/model"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// RestStore talks to the PostgREST interface exposed under /rest/v1.
type RestStore struct {
	client *resty.Client
}

func NewRestStore(cfg *config.SupabaseConfig) *RestStore {
	client := resty.New().
		SetBaseURL(cfg.URL+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.RequestTimeout)
	return &RestStore{client: client}
}

func (s *RestStore) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	rows, err := s.query(ctx, "assignments", "id", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("assignment %s: %w", id, apperror.ErrNotFound)
	}
	row := rows[0]
	return &model.Assignment{
		ID:            row.Get("id").String(),
		QuestionFiles: stringList(firstOf(row, "question_files", "question_file_url")),
		RubricFiles:   stringList(firstOf(row, "rubric_files", "rubric_file_url")),
	}, nil
}

func (s *RestStore) ListSubmissions(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	rows, err := s.query(ctx, "submissions", "assignment_id", assignmentID)
	if err != nil {
		return nil, err
	}
	submissions := make([]model.Submission, 0, len(rows))
	for _, row := range rows {
		status := model.ProcessingStatus(row.Get("status").String())
		if status == "" {
			status = model.StatusPending
		}
		submissions = append(submissions, model.Submission{
			ID:           row.Get("id").String(),
			UserID:       firstOf(row, "user_id", "student_id").String(),
			AssignmentID: row.Get("assignment_id").String(),
			FileURL:      firstOf(row, "file_url", "file_path").String(),
			Status:       status,
		})
	}
	return submissions, nil
}

func (s *RestStore) InsertResult(ctx context.Context, result *model.ResultRecord) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(result).
		Post("/results")
	if err != nil {
		return apperror.Network("insert result", err)
	}
	if resp.IsError() {
		return apperror.NetworkStatus("insert result", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *RestStore) UpdateSubmissionStatus(ctx context.Context, submissionID string, status model.ProcessingStatus) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam("id", "eq."+submissionID).
		SetQueryParam("status", "eq."+string(model.StatusPending)).
		SetBody(map[string]string{"status": string(status)}).
		Patch("/submissions")
	if err != nil {
		return apperror.Network("update submission status", err)
	}
	if resp.IsError() {
		return apperror.NetworkStatus("update submission status", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *RestStore) LatestResult(ctx context.Context, submissionID string) (*model.ResultRecord, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":        "*",
			"submission_id": "eq." + submissionID,
			"order":         "created_at.desc",
			"limit":         "1",
		}).
		Get("/results")
	if err != nil {
		return nil, apperror.Network("query results", err)
	}
	if resp.IsError() {
		return nil, apperror.NetworkStatus("query results", resp.StatusCode(), resp.String())
	}
	var records []model.ResultRecord
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("result for submission %s: %w", submissionID, apperror.ErrNotFound)
	}
	return &records[0], nil
}

// query runs GET /{table}?select=*&{column}=eq.{value}.
func (s *RestStore) query(ctx context.Context, table, column, value string) ([]gjson.Result, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": "*",
			column:   "eq." + value,
		}).
		Get("/" + table)
	if err != nil {
		return nil, apperror.Network("query "+table, err)
	}
	if resp.IsError() {
		return nil, apperror.NetworkStatus("query "+table, resp.StatusCode(), resp.String())
	}
	parsed := gjson.ParseBytes(resp.Body())
	if !parsed.IsArray() {
		return nil, fmt.Errorf("query %s: expected JSON array", table)
	}
	return parsed.Array(), nil
}

func firstOf(row gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := row.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// stringList accepts a JSON array, a JSON-encoded array stored as text, or a
// single string.
func stringList(v gjson.Result) []string {
	if v.Type == gjson.String {
		if inner := gjson.Parse(v.String()); inner.IsArray() {
			return stringList(inner)
		}
	}
	var out []string
	if v.IsArray() {
		for _, item := range v.Array() {
			if s := item.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.String(); s != "" {
		out = append(out, s)
	}
	return out
}
