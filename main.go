package main

import (
	"encoding/base64"
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/export"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/task"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 导出前是否按control.step推进信控
	runSignals = flag.Bool("run", false, "step the generated signal programs before export")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "roadgen")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Debugf("%+v", c)

	t, err := task.NewContext(c)
	if err != nil {
		log.Fatalf("build road network: %v", err)
	}
	if *runSignals {
		t.Run()
	}

	if c.Output.Map != "" {
		m := export.ToMapPb(t.Roads(), t.Junctions(), export.Options{
			Name:            c.Output.Map,
			Step:            t.RuntimeConfig().I.Step,
			SecondsPerPhase: t.RuntimeConfig().C.SecondsPerPhase,
		})
		if err := export.WriteMap(c.Output.Map, m); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if c.Output.GeoJSON != "" {
		fc := export.LanePolygons(t.Roads(), t.RuntimeConfig().I.Step)
		if err := export.WriteGeoJSON(c.Output.GeoJSON, fc); err != nil {
			log.Fatalf("%v", err)
		}
	}
}
