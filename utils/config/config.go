package config

const (
	defaultIndexStep       = 5.
	defaultMagnetic        = 3.
	defaultZRange          = 2.
	defaultInterval        = 1.
	defaultSecondsPerPhase = 15.
)

// RuntimeConfig 运行时配置
// 功能：原始配置加上默认值补全后的各部分配置
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 信控推进配置
	I   Index   // 空间索引配置
}

// NewRuntimeConfig 根据配置生成运行时配置
// 功能：未指定的采样间隔、磁吸长度、高度范围、步长与相位时长使用默认值
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{
		All: config,
		C:   config.Control,
		I:   config.Index,
	}
	if rc.I.Step <= 0 {
		rc.I.Step = defaultIndexStep
	}
	if rc.I.Magnetic < 0 {
		rc.I.Magnetic = 0
	} else if rc.I.Magnetic == 0 {
		rc.I.Magnetic = defaultMagnetic
	}
	if rc.I.ZRange <= 0 {
		rc.I.ZRange = defaultZRange
	}
	if rc.C.Step.Interval <= 0 {
		rc.C.Step.Interval = defaultInterval
	}
	if rc.C.SecondsPerPhase <= 0 {
		rc.C.SecondsPerPhase = defaultSecondsPerPhase
	}
	return rc
}
