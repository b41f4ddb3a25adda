package influx

import (
	"fmt"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/openziti/slotpool"
	"github.com/openziti/slotpool/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"path/filepath"
	"time"
)

func init() {
	influxCmd.AddCommand(influxLoadCmd)
}

var influxLoadCmd = &cobra.Command{
	Use:   "load <metricsRoot>",
	Short: "Load pool metrics data into InfluxDB",
	Args:  cobra.ExactArgs(1),
	Run:   influxLoad,
}

func influxLoad(_ *cobra.Command, args []string) {
	pools, err := util.DiscoverMetrics(args[0])
	if err != nil {
		logrus.Fatalf("error discovering metrics in [%s] (%v)", args[0], err)
	}
	if len(pools) < 1 {
		logrus.Warnf("no metrics found in [%s]", args[0])
		return
	}

	authToken := ""
	if influxDbUsername != "" || influxDbPassword != "" {
		authToken = fmt.Sprintf("%s:%s", influxDbUsername, influxDbPassword)
	}
	client := influxdb2.NewClient(influxDbUrl, authToken)
	defer client.Close()
	writeApi := client.WriteAPI("", influxDbDatabase)

	for path, mid := range pools {
		for _, dataset := range slotpool.MetricsDatasets {
			data, err := util.ReadSamples(filepath.Join(path, dataset+".csv"))
			if err != nil {
				logrus.Fatalf("error reading dataset [%s] for pool [%s] (%v)", dataset, mid.Id, err)
			}
			for ts, v := range data {
				p := influxdb2.NewPoint(dataset, nil, map[string]interface{}{"v": v}, time.Unix(0, ts)).AddTag("pool", mid.Id)
				for k, tv := range mid.Values {
					p.AddTag(k, tv)
				}
				writeApi.WritePoint(p)
			}
			logrus.Infof("wrote [%d] points for pool [%s] dataset [%s]", len(data), mid.Id, dataset)
		}
	}
	writeApi.Flush()
}
