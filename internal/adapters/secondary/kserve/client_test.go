package kserve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/Icestreamm/baseer-backend/internal/config"
	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	"github.com/Icestreamm/baseer-backend/internal/core/ports/output"
	"github.com/Icestreamm/baseer-backend/internal/testutil"
)

func inferenceService(name string, ready string, url string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "serving.kserve.io/v1beta1",
		"kind":       "InferenceService",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": "model-serving",
		},
	}}
	if ready != "" {
		obj.Object["status"] = map[string]interface{}{
			"url": url,
			"conditions": []interface{}{
				map[string]interface{}{"type": "PredictorReady", "status": "True"},
				map[string]interface{}{"type": "Ready", "status": ready, "message": "revision failed"},
			},
		}
	}
	return obj
}

func newFakeClient(objs ...runtime.Object) ports.KServeClient {
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{inferenceServiceGVR: "InferenceServiceList"}, objs...)
	return NewKServeClientFromDynamic(dyn, "")
}

func TestKServeClient_GetStatus(t *testing.T) {
	client := newFakeClient(
		inferenceService("yolo-handle", "True", "http://yolo-handle.model-serving.example.com"),
		inferenceService("yolo-damage", "False", ""),
		inferenceService("yolo-new", "", ""),
	)

	tests := []struct {
		name      string
		isvc      string
		wantReady bool
		wantURL   string
		wantError string
	}{
		{"ready", "yolo-handle", true, "http://yolo-handle.model-serving.example.com", ""},
		{"not ready", "yolo-damage", false, "", "revision failed"},
		{"no status yet", "yolo-new", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := client.GetStatus(context.Background(), "", tt.isvc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReady, status.Ready)
			assert.Equal(t, tt.wantURL, status.URL)
			assert.Equal(t, tt.wantError, status.Error)
		})
	}

	_, err := client.GetStatus(context.Background(), "", "missing")
	assert.ErrorIs(t, err, domain.ErrEndpointNotReady)
}

func TestKServeClient_Disabled(t *testing.T) {
	client, err := NewKServeClient(&config.KubernetesConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.IsAvailable())

	_, err = client.GetStatus(context.Background(), "ns", "name")
	assert.ErrorIs(t, err, domain.ErrEndpointNotReady)
}

func TestResolver_Endpoint(t *testing.T) {
	client := newFakeClient(
		inferenceService("yolo-handle", "True", "http://yolo-handle.example.com"),
		inferenceService("yolo-damage", "False", ""),
	)

	url, err := NewResolver(client, "", "yolo-handle", 0).Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://yolo-handle.example.com", url)

	_, err = NewResolver(client, "", "yolo-damage", 0).Endpoint(context.Background())
	assert.ErrorIs(t, err, domain.ErrEndpointNotReady)
	assert.Contains(t, err.Error(), "revision failed")
}

func TestResolver_Caches(t *testing.T) {
	client := new(testutil.MockKServeClient)
	client.On("IsAvailable").Return(true)
	client.On("GetStatus", mock.Anything, "ns", "isvc").
		Return(&ports.KServeStatus{URL: "http://isvc", Ready: true}, nil).Once()
	client.On("GetStatus", mock.Anything, "ns", "isvc").
		Return(nil, errors.New("api down")).Once()

	now := time.Unix(1000, 0)
	r := NewResolver(client, "ns", "isvc", time.Minute)
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		url, err := r.Endpoint(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://isvc", url)
	}

	now = now.Add(2 * time.Minute)
	_, err := r.Endpoint(context.Background())
	assert.EqualError(t, err, "api down")
	client.AssertExpectations(t)
}

func TestResolver_Unavailable(t *testing.T) {
	client := new(testutil.MockKServeClient)
	client.On("IsAvailable").Return(false)

	_, err := NewResolver(client, "ns", "isvc", 0).Endpoint(context.Background())
	assert.ErrorIs(t, err, domain.ErrEndpointNotReady)
}
