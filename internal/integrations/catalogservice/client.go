package catalogservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент каталога (бизнесы, услуги, сотрудники). Только чтение
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента каталога
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetBusiness получает бизнес (часовой пояс, аккаунт выплат)
func (c *Client) GetBusiness(ctx context.Context, businessID int64) (*Business, error) {
	url := fmt.Sprintf("%s/internal/businesses/%d", c.baseURL, businessID)

	var business Business
	if err := c.get(ctx, url, ErrBusinessNotFound, &business); err != nil {
		return nil, err
	}

	return &business, nil
}

// GetService получает услугу бизнеса (длительность, цена)
func (c *Client) GetService(ctx context.Context, businessID, serviceID int64) (*Service, error) {
	url := fmt.Sprintf("%s/internal/businesses/%d/services/%d", c.baseURL, businessID, serviceID)

	var service Service
	if err := c.get(ctx, url, ErrServiceNotFound, &service); err != nil {
		return nil, err
	}

	return &service, nil
}

// GetServiceStaff получает сотрудников, квалифицированных для услуги
// Пустой список - не ошибка
func (c *Client) GetServiceStaff(ctx context.Context, businessID, serviceID int64) ([]Staff, error) {
	url := fmt.Sprintf("%s/internal/businesses/%d/services/%d/staff", c.baseURL, businessID, serviceID)

	staff := make([]Staff, 0)
	if err := c.get(ctx, url, ErrServiceNotFound, &staff); err != nil {
		return nil, err
	}

	return staff, nil
}

func (c *Client) get(ctx context.Context, url string, notFound error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("CatalogService: request %s failed: %v", url, err)
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return notFound
	case http.StatusBadRequest:
		return fmt.Errorf("%w: bad request to %s", ErrInvalidResponse, url)
	default:
		body, _ := io.ReadAll(resp.Body)
		c.log.Warn("CatalogService: unexpected status %d from %s", resp.StatusCode, url)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}
