package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/timeoff/internal/model"
)

const (
	usersPath          = "/api/v1/users"
	timeOffRequestPath = "/api/v1/time_off_requests"
)

type timeOffAttributes struct {
	UserName       string `json:"user-name"`
	UserEmail      string `json:"user-email"`
	UserLeaderName string `json:"user-leader-name"`
	StartDate      string `json:"start-date"`
	EndDate        string `json:"end-date"`
	RequestType    string `json:"request-type"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
}

type timeOffListBody struct {
	TimeOffRequests struct {
		Data []struct {
			ID         flexibleID        `json:"id"`
			Attributes timeOffAttributes `json:"attributes"`
		} `json:"data"`
	} `json:"time_off_requests"`
	Pagination *struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
		TotalCount  int `json:"total_count"`
		PerPage     int `json:"per_page"`
	} `json:"pagination"`
}

type usersBody struct {
	Data []struct {
		ID         flexibleID `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

type createErrorBody struct {
	Errors []struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	} `json:"errors"`
}

// ListTimeOffRequests は休暇申請の一覧を1ページ取得する。
// valuesは listing.Query.APIValues が組み立てたクエリ文字列。
func (c *Client) ListTimeOffRequests(ctx context.Context, creds model.Credentials, values url.Values) (*model.TimeOffPage, error) {
	const op = "list_time_off_requests"
	resp, err := c.do(ctx, call{op: op, method: http.MethodGet, path: timeOffRequestPath, query: values, creds: &creds})
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case !resp.ok():
		return nil, newStatusError(op, resp)
	}

	var body timeOffListBody
	if err := decode(op, resp.Body, &body); err != nil {
		return nil, err
	}

	page := &model.TimeOffPage{
		Records: make([]model.TimeOffRequest, 0, len(body.TimeOffRequests.Data)),
	}
	for _, d := range body.TimeOffRequests.Data {
		a := d.Attributes
		page.Records = append(page.Records, model.TimeOffRequest{
			ID:            string(d.ID),
			EmployeeName:  a.UserName,
			EmployeeEmail: a.UserEmail,
			LeaderName:    a.UserLeaderName,
			StartDate:     a.StartDate,
			EndDate:       a.EndDate,
			RequestType:   model.RequestType(a.RequestType),
			Reason:        a.Reason,
			Status:        model.RequestStatus(a.Status),
		})
	}

	if p := body.Pagination; p != nil {
		page.Pagination = model.Pagination{
			CurrentPage: p.CurrentPage,
			TotalPages:  p.TotalPages,
			TotalCount:  p.TotalCount,
			PerPage:     p.PerPage,
		}
	} else {
		perPage, _ := strconv.Atoi(values.Get("per_page"))
		page.Pagination = model.DefaultPagination(perPage)
	}

	return page, nil
}

// ListUsers は申請フォームの担当者候補を取得する。
func (c *Client) ListUsers(ctx context.Context, creds model.Credentials) ([]model.Employee, error) {
	const op = "list_users"
	resp, err := c.do(ctx, call{op: op, method: http.MethodGet, path: usersPath, creds: &creds})
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case !resp.ok():
		return nil, newStatusError(op, resp)
	}

	var body usersBody
	if err := decode(op, resp.Body, &body); err != nil {
		return nil, err
	}

	employees := make([]model.Employee, 0, len(body.Data))
	for _, d := range body.Data {
		employees = append(employees, model.Employee{ID: string(d.ID), Name: d.Attributes.Name})
	}
	return employees, nil
}

// CreateTimeOffRequest は休暇申請を作成する。
// ボディにerrors配列があればステータスに関わらずValidationErrorを返す。
// 2xxで空ボディの場合は成功とみなす。
func (c *Client) CreateTimeOffRequest(ctx context.Context, creds model.Credentials, draft model.NewRequestDraft) error {
	const op = "create_time_off_request"
	resp, err := c.do(ctx, call{op: op, method: http.MethodPost, path: timeOffRequestPath, creds: &creds, body: draft})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if len(resp.Body) == 0 {
		if resp.ok() {
			return nil
		}
		return newStatusError(op, resp)
	}

	if !resp.ok() && resp.isHTML() {
		return newStatusError(op, resp)
	}

	var raw map[string]json.RawMessage
	if err := decode(op, resp.Body, &raw); err != nil {
		return err
	}
	if v, ok := raw["errors"]; ok && string(v) != "null" {
		var body createErrorBody
		if err := decode(op, resp.Body, &body); err != nil {
			return err
		}
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			if e.Detail != "" {
				msgs = append(msgs, e.Detail)
			} else if e.Title != "" {
				msgs = append(msgs, e.Title)
			}
		}
		return &ValidationError{Op: op, StatusCode: resp.StatusCode, Messages: msgs}
	}

	if !resp.ok() {
		return newStatusError(op, resp)
	}
	return nil
}
