// Package chatwork implements the Gateway port against the internal
// Chatwork gateway endpoints the web client itself calls. There is no
// public bulk-export API; these are the same paginated endpoints the
// browser replays, authenticated with the page session token.
package chatwork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// Protocol constants the web client sends with every gateway call.
const (
	gatewayVersion    = "1.80a"
	gatewayAPIVersion = "5"
	gatewayLanguage   = "en"

	// Error bodies kept for diagnostics are capped at this size.
	maxErrorBodyBytes = 4 << 10
)

// TransportError is returned for any non-success gateway response:
// a non-2xx HTTP status, a malformed JSON body, or a gateway envelope
// reporting failure. It is terminal for the operation; there is no
// automatic retry anywhere in the pipeline.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatwork gateway error: status=%d body=%q", e.Status, e.Body)
}

// Client talks to the Chatwork gateway. It is stateless apart from the
// session and safe for concurrent use, though the export pipeline itself
// is strictly sequential to respect the rate limiter.
type Client struct {
	baseURL    string
	session    domain.Session
	httpClient *http.Client
	log        *slog.Logger
}

var _ ports.Gateway = (*Client)(nil)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a gateway client for the given host (e.g.
// "www.chatwork.com"). A host without a scheme is addressed over https.
func NewClient(host string, session domain.Session, opts ...Option) *Client {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")

	c := &Client{
		baseURL:    base,
		session:    session,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitLoad fetches the room directory: every room plus the contact list.
func (c *Client) InitLoad(ctx context.Context) (*domain.RoomDirectory, error) {
	query := url.Values{}
	query.Set("rid", "0")
	query.Set("with_unconnected_in_organization", "1")

	result, err := c.postGateway(ctx, "init_load.php", query, map[string]any{
		"_t": c.session.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("init_load: %w", err)
	}

	var parsed struct {
		RoomDat map[string]struct {
			Name string `json:"n"`
		} `json:"room_dat"`
		ContactDat map[string]struct {
			RoomID flexInt64 `json:"rid"`
			Name   string    `json:"name"`
		} `json:"contact_dat"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("init_load: decode result: %w", err)
	}

	dir := &domain.RoomDirectory{Raw: result}
	for key, room := range parsed.RoomDat {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			c.log.Warn("skipping room with non-numeric id", "key", key)
			continue
		}
		dir.Rooms = append(dir.Rooms, domain.Room{ID: id, Name: room.Name})
	}
	for _, contact := range parsed.ContactDat {
		dir.Contacts = append(dir.Contacts, domain.Contact{
			RoomID: int64(contact.RoomID),
			Name:   contact.Name,
		})
	}

	// room_dat is a JSON object; iteration order is random. Fix it so a
	// run always walks rooms in the same order.
	sort.Slice(dir.Rooms, func(i, j int) bool { return dir.Rooms[i].ID < dir.Rooms[j].ID })

	c.log.Debug("room directory fetched", "rooms", len(dir.Rooms), "contacts", len(dir.Contacts))
	return dir, nil
}

// LoadChat fetches the current window of one room: recent messages and the
// attachment list.
func (c *Client) LoadChat(ctx context.Context, roomID int64) (*domain.RoomSnapshot, error) {
	query := url.Values{}
	query.Set("room_id", strconv.FormatInt(roomID, 10))
	query.Set("last_chat_id", "0")
	query.Set("unread_num", "0")
	query.Set("bookmark", "1")
	query.Set("file", "1")
	query.Set("desc", "1")

	result, err := c.postGateway(ctx, "load_chat.php", query, map[string]any{
		"load_file_version": "2",
		"_t":                c.session.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("load_chat room %d: %w", roomID, err)
	}

	var parsed struct {
		FileList []struct {
			ID   flexInt64 `json:"id"`
			Name string    `json:"fn"`
		} `json:"file_list"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("load_chat room %d: decode result: %w", roomID, err)
	}

	snapshot := &domain.RoomSnapshot{Raw: result}
	for _, f := range parsed.FileList {
		snapshot.Files = append(snapshot.Files, domain.AttachmentFile{
			ID:   int64(f.ID),
			Name: f.Name,
		})
	}
	return snapshot, nil
}

// LoadOldChat fetches one page of messages older than firstChatID.
// firstChatID 0 starts from the newest end. The page order on the wire is
// not relied upon; the history reader sorts what it receives.
func (c *Client) LoadOldChat(ctx context.Context, roomID, firstChatID int64) ([]domain.Message, error) {
	query := url.Values{}
	query.Set("room_id", strconv.FormatInt(roomID, 10))
	query.Set("first_chat_id", strconv.FormatInt(firstChatID, 10))

	result, err := c.postGateway(ctx, "load_old_chat.php", query, map[string]any{
		"_t": c.session.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("load_old_chat room %d before %d: %w", roomID, firstChatID, err)
	}

	var parsed struct {
		ChatList []domain.Message `json:"chat_list"`
	}
	// Message ids exceed float64 precision territory, decode numbers
	// verbatim.
	dec := json.NewDecoder(bytes.NewReader(result))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("load_old_chat room %d: decode result: %w", roomID, err)
	}

	return parsed.ChatList, nil
}

// GetAccountInfo resolves a batch of author ids in one call. The gateway
// endpoint is account-global, so no room id is involved.
func (c *Client) GetAccountInfo(ctx context.Context, aids []int64) (domain.AccountInfo, error) {
	query := url.Values{}
	query.Set("get_private_data", "0")

	result, err := c.postGateway(ctx, "get_account_info.php", query, map[string]any{
		"aid": aids,
		"_t":  c.session.Token,
	})
	if err != nil {
		return domain.AccountInfo{}, fmt.Errorf("get_account_info: %w", err)
	}

	var parsed struct {
		AccountDat map[string]struct {
			Name string `json:"name"`
		} `json:"account_dat"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return domain.AccountInfo{}, fmt.Errorf("get_account_info: decode result: %w", err)
	}

	info := domain.AccountInfo{
		Raw:      result,
		Accounts: make(map[int64]domain.Account, len(parsed.AccountDat)),
	}
	for key, acc := range parsed.AccountDat {
		aid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			c.log.Warn("skipping account with non-numeric id", "key", key)
			continue
		}
		info.Accounts[aid] = domain.Account{Name: acc.Name}
	}
	return info, nil
}

// DownloadFile fetches the binary payload of one attachment.
func (c *Client) DownloadFile(ctx context.Context, fileID int64) ([]byte, error) {
	u := fmt.Sprintf("%s/gateway/download_file.php?bin=1&file_id=%d&preview=0", c.baseURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("download_file %d: %w", fileID, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download_file %d: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &TransportError{Status: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download_file %d: read body: %w", fileID, err)
	}
	return data, nil
}

// gatewayEnvelope is the outer JSON object every gateway endpoint returns.
type gatewayEnvelope struct {
	Status *struct {
		Success bool `json:"success"`
	} `json:"status"`
	Result json.RawMessage `json:"result"`
}

// postGateway performs one authenticated POST round trip: the pdata payload
// goes out as a multipart form field, the response envelope is unwrapped to
// its result. Any failure mode maps to TransportError.
func (c *Client) postGateway(ctx context.Context, endpoint string, query url.Values, pdata any) (json.RawMessage, error) {
	payload, err := json.Marshal(pdata)
	if err != nil {
		return nil, fmt.Errorf("marshal pdata: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("pdata", string(payload)); err != nil {
		return nil, fmt.Errorf("write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	query.Set("myid", c.session.MyID)
	query.Set("_v", gatewayVersion)
	query.Set("_av", gatewayAPIVersion)
	query.Set("ln", gatewayLanguage)
	u := fmt.Sprintf("%s/gateway/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("gateway request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &TransportError{Status: resp.StatusCode, Body: truncate(raw)}
	}

	var env gatewayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("gateway response is not valid JSON", "endpoint", endpoint, "error", err)
		return nil, &TransportError{Status: resp.StatusCode, Body: truncate(raw)}
	}
	if env.Status != nil && !env.Status.Success {
		c.log.Warn("gateway reported failure", "endpoint", endpoint)
		return nil, &TransportError{Status: resp.StatusCode, Body: truncate(raw)}
	}

	return env.Result, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return string(body)
}

// flexInt64 decodes an int64 that the gateway may encode as a JSON number
// or as a quoted string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	*f = flexInt64(n)
	return nil
}
