// Package eastmoney 实现东方财富 push2 列表接口的行情客户端。
package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/market"
	"sectorpulse/pkg/provider"
)

// DefaultListURL 东方财富列表接口地址
const DefaultListURL = "https://82.push2.eastmoney.com/api/qt/clist/get"

// 常用市场过滤表达式
const (
	// FilterConvertibleBonds 可转债列表
	FilterConvertibleBonds = "b:MK0354"
	// FilterIndustrySectors 行业板块列表
	FilterIndustrySectors = "m:90+t:2"
)

// 请求头（模拟浏览器，接口对裸 UA 返回空数据）
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer   = "https://quote.eastmoney.com/"
)

// Client 东方财富行情客户端
type Client struct {
	httpClient *http.Client
	listURL    string
	log        *logrus.Entry
}

// NewClient 创建东方财富客户端
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				MaxConnsPerHost:     10,
			},
			Timeout: 10 * time.Second,
		},
		listURL: DefaultListURL,
		log:     logger.WithComponent("EastmoneyClient"),
	}
}

// Name 返回数据源名称
func (c *Client) Name() string {
	return "eastmoney"
}

// IsHealthy 检查客户端健康状态
func (c *Client) IsHealthy() bool {
	return c.httpClient != nil
}

// SetListURL 覆盖列表接口地址（测试用）
func (c *Client) SetListURL(u string) {
	c.listURL = u
}

// SetTimeout 设置请求超时时间
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// FetchQuotes 拉取一批行情记录，顺序跟随 SortField 降序
func (c *Client) FetchQuotes(ctx context.Context, req provider.QuoteRequest) ([]market.Quote, error) {
	u := c.buildURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Referer", referer)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	quotes := parseQuoteList(body)
	c.log.Debugf("fetched %d quotes for filter %s in %v", len(quotes), req.Filter, time.Since(start))

	return quotes, nil
}

// buildURL 构建列表接口 URL
// pn/pz 分页，po=1 降序，fid 排序字段，fs 市场过滤，fltt=2 数值返回小数
func (c *Client) buildURL(req provider.QuoteRequest) string {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	sortField := req.SortField
	if sortField == "" {
		sortField = FieldChangePercent
	}

	q := url.Values{}
	q.Set("pn", "1")
	q.Set("pz", strconv.Itoa(limit))
	q.Set("po", "1")
	q.Set("np", "1")
	q.Set("fltt", "2")
	q.Set("invt", "2")
	q.Set("fid", sortField)
	q.Set("fs", req.Filter)
	q.Set("fields", strings.Join(fields, ","))

	return c.listURL + "?" + q.Encode()
}

var _ provider.QuoteClient = (*Client)(nil)
