package sink

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"sectorpulse/pkg/scheduler"
)

// InfluxWriter 把板块涨跌幅与龙头数据写入 InfluxDB 时序库
type InfluxWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxWriter 创建 InfluxDB 写入器（异步批量写入）
func NewInfluxWriter(url, token, org, bucket string) *InfluxWriter {
	client := influxdb2.NewClient(url, token)

	return &InfluxWriter{
		client:   client,
		writeAPI: client.WriteAPI(org, bucket),
	}
}

// Name 返回发布器名称
func (w *InfluxWriter) Name() string {
	return "influxdb"
}

// Publish 每个板块写一个数据点，龙头信息作为字段附带
func (w *InfluxWriter) Publish(ctx context.Context, result scheduler.CycleResult) error {
	for _, sec := range result.Sectors {
		point := influxdb2.NewPointWithMeasurement("sector_snapshot").
			AddTag("code", sec.Code).
			AddTag("name", sec.Name).
			AddField("change_percent", sec.ChangePercent).
			AddField("trading", result.Trading).
			SetTime(result.Timestamp)

		if sec.Leaders != nil {
			point.AddField("gainer", sec.Leaders.Gainer.Name).
				AddField("gainer_value", sec.Leaders.Gainer.Value).
				AddField("volume_leader", sec.Leaders.Volume.Name).
				AddField("funds_leader", sec.Leaders.Funds.Name)
		}

		w.writeAPI.WritePoint(point)
	}

	return nil
}

// Close 冲刷缓冲并关闭客户端
func (w *InfluxWriter) Close() error {
	w.writeAPI.Flush()
	w.client.Close()
	return nil
}

var _ Publisher = (*InfluxWriter)(nil)
