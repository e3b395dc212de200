package metrics

import (
	"net/http"
	"time"
)

// instrumentedTransport は外部API呼び出しのステータスとレイテンシを記録するRoundTripper。
type instrumentedTransport struct {
	service   string
	collector MetricsCollector
	next      http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	t.collector.RecordUpstreamLatency(t.service, time.Since(start))
	if err != nil {
		// トランスポートエラーはステータス0として記録する
		t.collector.RecordUpstreamStatus(t.service, 0)
		return nil, err
	}
	t.collector.RecordUpstreamStatus(t.service, resp.StatusCode)
	return resp, nil
}

// InstrumentClient はserviceラベル付きでメトリクスを記録するHTTPクライアントを返す。
// 元のクライアントのタイムアウト等の設定は引き継ぐ。
func InstrumentClient(service string, client *http.Client, collector MetricsCollector) *http.Client {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &instrumentedTransport{
		service:   service,
		collector: collector,
		next:      next,
	}
	return &wrapped
}
