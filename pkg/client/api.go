package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cowork/pkg/model"
)

// APIError is a non-2xx answer from a cowork service.
type APIError struct {
	Status  int
	Code    string         `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Page[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func decode[T any](resp *Response) (T, error) {
	var out struct {
		Data T `json:"data"`
	}
	if err := checkStatus(resp); err != nil {
		return out.Data, err
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return out.Data, fmt.Errorf("could not decode response: %w (%s)", err, resp.ToString())
	}
	return out.Data, nil
}

func decodePage[T any](resp *Response) (*Page[T], error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var page Page[T]
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, fmt.Errorf("could not decode page: %w (%s)", err, resp.ToString())
	}
	return &page, nil
}

func checkStatus(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := resp.DecodeJSON(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = GetErrorMessage(resp)
	}
	return apiErr
}

func pageQuery(q url.Values, limit int, offset int64) url.Values {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	return q
}

// API bundles typed clients for every cowork service. Services may live
// behind different base URLs; empty URLs fall back to the reservations one.
type API struct {
	Reservations *ReservationClient
	Resources    *ResourceClient
	Members      *MemberClient
	Access       *AccessClient
	Invoices     *InvoiceClient
	Amenities    *AmenityClient
	Reports      *ReportClient
}

type Endpoints struct {
	Reservations string
	Members      string
	Billing      string
	Reports      string
}

func NewAPI(e Endpoints, memberID string) *API {
	withFallback := func(u string) *HttpClient {
		if u == "" {
			u = e.Reservations
		}
		c := NewHttpClient(u)
		if memberID != "" {
			c.Headers["X-Member-ID"] = memberID
		}
		return c
	}
	reservations := withFallback(e.Reservations)
	members := withFallback(e.Members)
	billing := withFallback(e.Billing)

	return &API{
		Reservations: &ReservationClient{http: reservations},
		Resources:    &ResourceClient{http: reservations},
		Members:      &MemberClient{http: members},
		Access:       &AccessClient{http: members},
		Invoices:     &InvoiceClient{http: billing},
		Amenities:    &AmenityClient{http: billing},
		Reports:      &ReportClient{http: withFallback(e.Reports)},
	}
}

type ReservationClient struct {
	http *HttpClient
}

// Reserve sends idempotencyKey, when set, so a retried call cannot book twice.
func (c *ReservationClient) Reserve(ctx context.Context, req model.ReservationRequest, idempotencyKey string) (*model.Reservation, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	resp, err := c.http.POSTWithHeaders(ctx, "/api/v1/reservations", req, headers)
	if err != nil {
		return nil, err
	}
	return decode[*model.Reservation](resp)
}

func (c *ReservationClient) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	resp, err := c.http.GET(ctx, "/api/v1/reservations/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decode[*model.Reservation](resp)
}

func (c *ReservationClient) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	resp, err := c.http.POST(ctx, "/api/v1/reservations/id/"+url.PathEscape(id)+"/cancel", struct{}{})
	if err != nil {
		return nil, err
	}
	return decode[*model.Reservation](resp)
}

func (c *ReservationClient) ByMember(ctx context.Context, memberID string, limit int, offset int64) (*Page[model.Reservation], error) {
	q := pageQuery(url.Values{}, limit, offset)
	resp, err := c.http.GET(ctx, "/api/v1/reservations/member/"+url.PathEscape(memberID)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodePage[model.Reservation](resp)
}

func (c *ReservationClient) Upcoming(ctx context.Context, limit int) ([]model.Reservation, error) {
	q := pageQuery(url.Values{}, limit, 0)
	resp, err := c.http.GET(ctx, "/api/v1/reservations/upcoming?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.Reservation](resp)
}

func (c *ReservationClient) Search(ctx context.Context, s model.ReservationSearch, limit int, offset int64) (*Page[model.Reservation], error) {
	q := url.Values{}
	q.Set("resource_type", s.ResourceType)
	q.Set("resource_id", s.ResourceID)
	if !s.From.IsZero() {
		q.Set("start_time", s.From.Format(time.RFC3339))
	}
	if !s.To.IsZero() {
		q.Set("end_time", s.To.Format(time.RFC3339))
	}
	resp, err := c.http.GET(ctx, "/api/v1/reservations/search?"+pageQuery(q, limit, offset).Encode())
	if err != nil {
		return nil, err
	}
	return decodePage[model.Reservation](resp)
}

type ResourceClient struct {
	http *HttpClient
}

func (c *ResourceClient) Create(ctx context.Context, r model.Resource) (*model.Resource, error) {
	resp, err := c.http.POST(ctx, "/api/v1/resources", r)
	if err != nil {
		return nil, err
	}
	return decode[*model.Resource](resp)
}

func (c *ResourceClient) Get(ctx context.Context, resourceType, id string) (*model.Resource, error) {
	resp, err := c.http.GET(ctx, "/api/v1/resources/id/"+url.PathEscape(resourceType)+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decode[*model.Resource](resp)
}

func (c *ResourceClient) List(ctx context.Context, f model.ResourceFilter, availableOnly bool) ([]model.Resource, error) {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Location != "" {
		q.Set("location", f.Location)
	}
	path := "/api/v1/resources"
	if availableOnly {
		path += "/available"
	}
	resp, err := c.http.GET(ctx, path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.Resource](resp)
}

func (c *ResourceClient) SetStatus(ctx context.Context, resourceType, id, status string) (*model.Resource, error) {
	path := "/api/v1/resources/id/" + url.PathEscape(resourceType) + "/" + url.PathEscape(id) + "/status"
	resp, err := c.http.PATCH(ctx, path, model.ResourceStatusUpdate{Occupied: status})
	if err != nil {
		return nil, err
	}
	return decode[*model.Resource](resp)
}

type MemberClient struct {
	http *HttpClient
}

func (c *MemberClient) Register(ctx context.Context, m model.Member, accessType string) (*model.MemberRegistration, error) {
	body := struct {
		model.Member
		AccessType string `json:"access_type,omitempty"`
	}{Member: m, AccessType: accessType}
	resp, err := c.http.POST(ctx, "/api/v1/members", body)
	if err != nil {
		return nil, err
	}
	return decode[*model.MemberRegistration](resp)
}

func (c *MemberClient) Get(ctx context.Context, id string) (*model.Member, error) {
	resp, err := c.http.GET(ctx, "/api/v1/members/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decode[*model.Member](resp)
}

func (c *MemberClient) ByPlan(ctx context.Context, plan string) ([]model.Member, error) {
	q := url.Values{}
	q.Set("plan", plan)
	resp, err := c.http.GET(ctx, "/api/v1/members?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.Member](resp)
}

func (c *MemberClient) SetStatus(ctx context.Context, id, status string) (*model.Member, error) {
	resp, err := c.http.PATCH(ctx, "/api/v1/members/id/"+url.PathEscape(id)+"/status", model.MemberStatusUpdate{Status: status})
	if err != nil {
		return nil, err
	}
	return decode[*model.Member](resp)
}

type AccessClient struct {
	http *HttpClient
}

func (c *AccessClient) Log(ctx context.Context, entry model.AccessLog) (*model.AccessLog, error) {
	resp, err := c.http.POST(ctx, "/api/v1/access", entry)
	if err != nil {
		return nil, err
	}
	return decode[*model.AccessLog](resp)
}

func (c *AccessClient) History(ctx context.Context, memberID string, days int) ([]model.AccessLog, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	resp, err := c.http.GET(ctx, "/api/v1/access/member/"+url.PathEscape(memberID)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.AccessLog](resp)
}

func (c *AccessClient) Today(ctx context.Context) ([]model.AccessLog, error) {
	resp, err := c.http.GET(ctx, "/api/v1/access/today")
	if err != nil {
		return nil, err
	}
	return decode[[]model.AccessLog](resp)
}

func (c *AccessClient) Stats(ctx context.Context, days int) ([]model.LocationAccessStats, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	resp, err := c.http.GET(ctx, "/api/v1/access/stats?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.LocationAccessStats](resp)
}

type InvoiceClient struct {
	http *HttpClient
}

func (c *InvoiceClient) Generate(ctx context.Context, req model.InvoiceRequest) (*model.Invoice, error) {
	resp, err := c.http.POST(ctx, "/api/v1/invoices", req)
	if err != nil {
		return nil, err
	}
	return decode[*model.Invoice](resp)
}

func (c *InvoiceClient) Pay(ctx context.Context, id string) (*model.Invoice, error) {
	resp, err := c.http.POST(ctx, "/api/v1/invoices/id/"+url.PathEscape(id)+"/pay", struct{}{})
	if err != nil {
		return nil, err
	}
	return decode[*model.Invoice](resp)
}

func (c *InvoiceClient) ByMember(ctx context.Context, memberID string) ([]model.Invoice, error) {
	resp, err := c.http.GET(ctx, "/api/v1/invoices/member/"+url.PathEscape(memberID))
	if err != nil {
		return nil, err
	}
	return decode[[]model.Invoice](resp)
}

func (c *InvoiceClient) Overdue(ctx context.Context) ([]model.Invoice, error) {
	resp, err := c.http.GET(ctx, "/api/v1/invoices/overdue")
	if err != nil {
		return nil, err
	}
	return decode[[]model.Invoice](resp)
}

type AmenityClient struct {
	http *HttpClient
}

func (c *AmenityClient) Create(ctx context.Context, item model.StockedItem) (*model.StockedItem, error) {
	resp, err := c.http.POST(ctx, "/api/v1/amenities", item)
	if err != nil {
		return nil, err
	}
	return decode[*model.StockedItem](resp)
}

func (c *AmenityClient) Purchase(ctx context.Context, req model.PurchaseRequest) (*model.ServiceUsage, error) {
	resp, err := c.http.POST(ctx, "/api/v1/amenities/purchase", req)
	if err != nil {
		return nil, err
	}
	return decode[*model.ServiceUsage](resp)
}

func (c *AmenityClient) LowStock(ctx context.Context, threshold int) ([]model.StockedItem, error) {
	q := url.Values{}
	if threshold > 0 {
		q.Set("threshold", strconv.Itoa(threshold))
	}
	resp, err := c.http.GET(ctx, "/api/v1/amenities/low-stock?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[[]model.StockedItem](resp)
}

type ReportClient struct {
	http *HttpClient
}

// Get fetches one report by name as raw JSON. days of zero uses the
// report's default lookback.
func (c *ReportClient) Get(ctx context.Context, name string, days int) (json.RawMessage, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	resp, err := c.http.GET(ctx, "/api/v1/reports/"+url.PathEscape(name)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decode[json.RawMessage](resp)
}
