package devruntime

import (
	"context"
	"testing"

	"github.com/hull-run/hull/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingResponse struct {
	status  int
	headers map[string]string
	body    []byte
}

func (r *recordingResponse) SetStatus(code int)          { r.status = code }
func (r *recordingResponse) SetHeader(name, value string) {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[name] = value
}
func (r *recordingResponse) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return len(body), nil
}

func TestDispatchBeforeLoadAppFails(t *testing.T) {
	rt := New()
	err := rt.Dispatch(context.Background(), "index", &runtime.Request{}, &recordingResponse{})
	assert.Error(t, err)
}

func TestFullLifecycle(t *testing.T) {
	rt := New()
	rt.SetApp(&App{
		Routes: []runtime.Route{{Method: "GET", Path: "/hello", HandlerID: "hello"}},
		Handlers: map[string]Handler{
			"hello": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				resp.SetStatus(200)
				resp.SetHeader("Content-Type", "text/plain")
				_, err := resp.Write([]byte("hi " + req.RouteParams["name"]))
				return err
			},
		},
		Manifest: map[string]any{"hosts": []any{"api.example.com"}},
	})

	require.NoError(t, rt.Init(context.Background(), runtime.Config{}))
	require.NoError(t, rt.LoadApp(context.Background(), "app.lua"))

	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Routes, 1)
	assert.Equal(t, "hello", table.Routes[0].HandlerID)

	doc, err := rt.ExtractManifest(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc)

	resp := &recordingResponse{}
	req := &runtime.Request{RouteParams: map[string]string{"name": "world"}}
	require.NoError(t, rt.Dispatch(context.Background(), "hello", req, resp))
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "hi world", string(resp.body))

	require.NoError(t, rt.Destroy(context.Background()))
}

func TestDispatchUnknownHandlerFails(t *testing.T) {
	rt := New()
	rt.SetApp(&App{Handlers: map[string]Handler{}})
	require.NoError(t, rt.LoadApp(context.Background(), "app.lua"))

	err := rt.Dispatch(context.Background(), "missing", &runtime.Request{}, &recordingResponse{})
	assert.Error(t, err)
}
