package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/utils"
)

// ErrSourceUnavailable 外部库存系统不可达或返回异常
var ErrSourceUnavailable = errors.New("外部库存系统不可用")

// InventorySource 外部库存数据源契约
// 下游组件只依赖该契约，不关心具体实现（真实ERP或内置模拟源）
type InventorySource interface {
	// FetchItems 拉取指定范围的全量库存快照，scope 为 all 时不限仓库
	FetchItems(ctx context.Context, scope string) ([]models.InventoryItem, error)
	// FetchLowStock 拉取低库存项（quantity <= reorderLevel，由数据源过滤）
	FetchLowStock(ctx context.Context, scope string) ([]models.InventoryItem, error)
	// FetchMovements 按条件查询变动记录，按时间倒序返回
	FetchMovements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error)
	// CreateMovement 创建一条库存变动
	CreateMovement(ctx context.Context, req models.CreateMovementRequest) (*models.StockMovement, error)
}

// ERPSource 对接远端ERP库存接口的数据源
type ERPSource struct {
	baseURL  string
	username string
	password string
	client   *http.Client

	mu    sync.Mutex
	token string
}

// NewERPSource 创建ERP数据源
func NewERPSource(baseURL, username, password string, timeout time.Duration) *ERPSource {
	return &ERPSource{
		baseURL:  baseURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

// login 认证并缓存令牌
func (s *ERPSource) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: 认证失败, 状态码 %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: 解析认证响应失败: %v", ErrSourceUnavailable, err)
	}

	s.mu.Lock()
	s.token = result.Token
	s.mu.Unlock()

	utils.Logger.Debug().Str("baseURL", s.baseURL).Msg("ERP认证成功")
	return nil
}

// doJSON 发送请求并解析JSON响应
// 遇到401时重新认证并原样重试一次
func (s *ERPSource) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, out interface{}) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		if err := s.login(ctx); err != nil {
			return err
		}
	}

	retried := false
	for {
		var bodyReader io.Reader
		if reqBody != nil {
			data, err := json.Marshal(reqBody)
			if err != nil {
				return err
			}
			bodyReader = bytes.NewReader(data)
		}

		fullURL := s.baseURL + path
		if len(query) > 0 {
			fullURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		s.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+s.token)
		s.mu.Unlock()

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !retried {
			resp.Body.Close()
			retried = true
			if err := s.login(ctx); err != nil {
				return err
			}
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("%w: 状态码 %d: %s", ErrSourceUnavailable, resp.StatusCode, string(data))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%w: 解析响应失败: %v", ErrSourceUnavailable, err)
			}
		}
		return nil
	}
}

// scopeQuery 构造仓库范围查询参数
func scopeQuery(scope string) url.Values {
	query := url.Values{}
	if scope != "" && scope != models.ScopeAll {
		query.Set("warehouse", scope)
	}
	return query
}

// FetchItems 拉取库存快照
func (s *ERPSource) FetchItems(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	var result struct {
		Items []models.InventoryItem `json:"items"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/api/inventory/items", scopeQuery(scope), nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// FetchLowStock 拉取低库存项
func (s *ERPSource) FetchLowStock(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	query := scopeQuery(scope)
	query.Set("lowStock", "true")
	var result struct {
		Items []models.InventoryItem `json:"items"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/api/inventory/items", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// FetchMovements 查询变动记录
func (s *ERPSource) FetchMovements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	query := url.Values{}
	if filter.ItemCode != "" {
		query.Set("itemCode", filter.ItemCode)
	}
	if filter.Warehouse != "" && filter.Warehouse != models.ScopeAll {
		query.Set("warehouse", filter.Warehouse)
	}
	if filter.StartDate != nil {
		query.Set("startDate", filter.StartDate.Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		query.Set("endDate", filter.EndDate.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}

	var result struct {
		Movements []models.StockMovement `json:"movements"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/api/inventory/movements", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Movements, nil
}

// CreateMovement 创建库存变动
func (s *ERPSource) CreateMovement(ctx context.Context, req models.CreateMovementRequest) (*models.StockMovement, error) {
	var movement models.StockMovement
	if err := s.doJSON(ctx, http.MethodPost, "/api/inventory/movements", nil, req, &movement); err != nil {
		return nil, err
	}
	return &movement, nil
}
