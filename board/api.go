package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHttpTimeout = 30 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// DashboardApi issues outbound requests to the server's mutation endpoints
// and read-only auxiliary endpoints. It never touches the entity store;
// authoritative state updates arrive through the event stream.
type DashboardApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	byJwt string
}

func NewDashboardApi(apiUrl string) *DashboardApi {
	return NewDashboardApiWithContext(context.Background(), apiUrl)
}

func NewDashboardApiWithContext(ctx context.Context, apiUrl string) *DashboardApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &DashboardApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

func (self *DashboardApi) SetByJwt(byJwt string) {
	self.byJwt = byJwt
}

func (self *DashboardApi) Close() {
	self.cancel()
}

type TerminateAgentCallback apiCallback[*TerminateAgentResult]

type TerminateAgentArgs struct {
	AgentId string `json:"agent_id"`
}

type TerminateAgentResult struct {
	AgentId string `json:"agent_id"`
	Status  string `json:"status,omitempty"`
}

func (self *DashboardApi) TerminateAgent(terminateAgent *TerminateAgentArgs, callback TerminateAgentCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/agents/terminate", self.apiUrl),
		terminateAgent,
		self.byJwt,
		&TerminateAgentResult{},
		callback,
	)
}

type QueueToggleCallback apiCallback[*QueueToggleResult]

type QueueToggleArgs struct {
	QueueId string `json:"queue_id"`
	NodeId  string `json:"node_id"`
}

type QueueToggleResult struct {
	QueueId string `json:"queue_id"`
	NodeId  string `json:"node_id"`
	Queued  bool   `json:"queued"`
}

func (self *DashboardApi) QueueToggle(queueToggle *QueueToggleArgs, callback QueueToggleCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/queues/toggle", self.apiUrl),
		queueToggle,
		self.byJwt,
		&QueueToggleResult{},
		callback,
	)
}

type CreateRelationshipCallback apiCallback[*CreateRelationshipResult]

type CreateRelationshipArgs struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	EdgeType EdgeType `json:"edge_type"`
	Reason   string   `json:"reason,omitempty"`
}

type CreateRelationshipResult struct {
	Edge *Edge `json:"edge,omitempty"`
}

func (self *DashboardApi) CreateRelationship(createRelationship *CreateRelationshipArgs, callback CreateRelationshipCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/relationships", self.apiUrl),
		createRelationship,
		self.byJwt,
		&CreateRelationshipResult{},
		callback,
	)
}

type ActivityLogCallback apiCallback[*ActivityLogResult]

type ActivityLogArgs struct {
	NodeId string
	Page   int
	Limit  int
}

type ActivityLogEntry struct {
	NodeId    string     `json:"node_id"`
	Actor     string     `json:"actor,omitempty"`
	Message   string     `json:"message"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type ActivityLogResult struct {
	Entries  []*ActivityLogEntry `json:"entries"`
	NextPage int                 `json:"next_page,omitempty"`
}

func (self *DashboardApi) ActivityLog(activityLog *ActivityLogArgs, callback ActivityLogCallback) {
	query := url.Values{}
	if activityLog.NodeId != "" {
		query.Set("node_id", activityLog.NodeId)
	}
	if 0 < activityLog.Page {
		query.Set("page", fmt.Sprintf("%d", activityLog.Page))
	}
	if 0 < activityLog.Limit {
		query.Set("limit", fmt.Sprintf("%d", activityLog.Limit))
	}
	go get(
		self.ctx,
		fmt.Sprintf("%s/activity?%s", self.apiUrl, query.Encode()),
		self.byJwt,
		&ActivityLogResult{},
		callback,
	)
}

type DocumentBodyCallback apiCallback[*DocumentBodyResult]

type DocumentBodyResult struct {
	Id      string `json:"id"`
	DocType string `json:"doc_type,omitempty"`
	Content string `json:"content"`
}

func (self *DashboardApi) DocumentBody(docId string, callback DocumentBodyCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/docs/%s/body", self.apiUrl, url.PathEscape(docId)),
		self.byJwt,
		&DocumentBodyResult{},
		callback,
	)
}

type OwnersCallback apiCallback[*OwnersResult]

type OwnersResult struct {
	Owners []string `json:"owners"`
}

func (self *DashboardApi) Owners(callback OwnersCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/owners", self.apiUrl),
		self.byJwt,
		&OwnersResult{},
		callback,
	)
}

func post[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

func get[R any](ctx context.Context, url string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}
