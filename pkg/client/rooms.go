package client

import (
	"context"
	"fmt"
	"net/url"
)

// RoomsClient calls the room booking HTTP API.
type RoomsClient struct {
	httpClient *HttpClient
}

func NewRoomsClient(baseURL string) *RoomsClient {
	return &RoomsClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *RoomsClient) Rooms(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/rooms")
}

func (c *RoomsClient) AvailableRooms(ctx context.Context, date, startTime, endTime string) (*Response, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("start_time", startTime)
	q.Set("end_time", endTime)
	return c.httpClient.GET(ctx, "/api/v1/rooms/available?"+q.Encode())
}

func (c *RoomsClient) StartTimes(ctx context.Context, date string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/slots/start?date="+url.QueryEscape(date))
}

func (c *RoomsClient) EndTimes(ctx context.Context, startTime string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/slots/end?start_time="+url.QueryEscape(startTime))
}

func (c *RoomsClient) CreateBooking(ctx context.Context, body any) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings", body)
}

func (c *RoomsClient) CreateBookingIdempotent(ctx context.Context, body any, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", body, map[string]string{
		"Idempotency-Key": key,
	})
}

func (c *RoomsClient) ListBookings(ctx context.Context, filter string) (*Response, error) {
	path := "/api/v1/bookings"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	return c.httpClient.GET(ctx, path)
}

func (c *RoomsClient) CancelBooking(ctx context.Context, id int, email string) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/api/v1/bookings/id/%d/cancel", id), map[string]string{"email": email})
}
