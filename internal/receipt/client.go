// Package receipt 访问接车单后端：未处理列表、我的列表、单条详情，
// 以及开工状态的上报。后端 DTO 在这里收敛为 repair.Record。
package receipt

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AutoFixLink/AutoFixLink/internal/backend"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// Client 接车单后端客户端。
type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

// ListUnprocessed 拉取未处理（待接修）的接车单。
func (c *Client) ListUnprocessed(ctx context.Context) ([]repair.Record, error) {
	var dtos []receiptDTO
	if err := c.api.GetJSON(ctx, "/api/receipts/unprocessed", nil, &dtos); err != nil {
		return nil, err
	}
	return toRecords(dtos), nil
}

// ListMine 拉取指定负责工程师名下的接车单。
func (c *Client) ListMine(ctx context.Context, manager string) ([]repair.Record, error) {
	manager = strings.TrimSpace(manager)
	if manager == "" {
		return nil, fmt.Errorf("manager is required")
	}
	q := url.Values{"manager": {manager}}
	var dtos []receiptDTO
	if err := c.api.GetJSON(ctx, "/api/receipts/mine", q, &dtos); err != nil {
		return nil, err
	}
	return toRecords(dtos), nil
}

// Get 拉取单条接车单详情。
func (c *Client) Get(ctx context.Context, id string) (*repair.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("receipt id is required")
	}
	var dto receiptDTO
	if err := c.api.GetJSON(ctx, "/api/receipts/"+url.PathEscape(id), nil, &dto); err != nil {
		return nil, err
	}
	rec, ok := toRecord(dto)
	if !ok {
		return nil, &repair.FetchError{
			Kind: repair.FetchBadPayload,
			Op:   "receipt.Get",
			Err:  fmt.Errorf("receipt %s has no id in payload", id),
		}
	}
	return &rec, nil
}

// statusRequest 状态上报的请求体。状态文案沿用后端约定。
type statusRequest struct {
	State   string `json:"state"`
	Manager string `json:"manager"`
}

// ReportStart 将开工流转（负责人 + 状态）同步回后端。
func (c *Client) ReportStart(ctx context.Context, id, manager string) error {
	return c.reportStatus(ctx, id, repair.StatusInProgress, manager)
}

// ReportComplete 将完工流转同步回后端。
// 不上报的话后端视角的单子会一直停在维修中，重复完工也无从拒绝。
func (c *Client) ReportComplete(ctx context.Context, id, manager string) error {
	return c.reportStatus(ctx, id, repair.StatusCompleted, manager)
}

func (c *Client) reportStatus(ctx context.Context, id string, status repair.Status, manager string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("receipt id is required")
	}
	body := statusRequest{
		State:   status.DisplayText(),
		Manager: strings.TrimSpace(manager),
	}
	return c.api.PostJSON(ctx, "/api/receipts/"+url.PathEscape(id)+"/status", body, nil)
}
