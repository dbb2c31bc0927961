package config

// Input 输入数据配置
type Input struct {
	Map string `yaml:"map,omitempty"` // 城市地图pb文件路径，其中的车道中心线作为参考线导入
}

// Line 直线参考线
type Line struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"` // 弧度
	Length  float64 `yaml:"length"`
}

// Side 一侧的车道配置
type Side struct {
	Lanes    uint8 `yaml:"lanes"`
	OffsetX2 int8  `yaml:"offset_x2,omitempty"` // 偏移，单位为半个车道宽
}

// Overwrite 覆盖一段范围内某一侧的车道配置
type Overwrite struct {
	Side     string  `yaml:"side"`  // left或right
	Start    float64 `yaml:"start"` // 米
	End      float64 `yaml:"end"`   // 米
	Lanes    uint8   `yaml:"lanes"`
	OffsetX2 int8    `yaml:"offset_x2,omitempty"`
}

// Road 道路配置
// 说明：参考线三选一：line直线、points折线、map_lane引用输入地图中的车道中心线
type Road struct {
	ID         int32       `yaml:"id"`
	Name       string      `yaml:"name,omitempty"`
	Line       *Line       `yaml:"line,omitempty"`
	Points     [][]float64 `yaml:"points,omitempty"` // [[x, y], ...]
	MapLane    int32       `yaml:"map_lane,omitempty"`
	Elevation  float64     `yaml:"elevation,omitempty"`
	Left       Side        `yaml:"left"`
	Right      Side        `yaml:"right"`
	Overwrites []Overwrite `yaml:"overwrites,omitempty"`
}

// Connection 路口接入
type Connection struct {
	Road    int32  `yaml:"road"`
	Contact string `yaml:"contact"` // start或end
	Skip    int    `yaml:"skip,omitempty"`
}

// Junction 路口配置
type Junction struct {
	Type        string       `yaml:"type"`               // common或direct
	Provider    *Connection  `yaml:"provider,omitempty"` // 直接路口的接口道路
	Connections []Connection `yaml:"connections"`
}

// Index 空间索引配置
type Index struct {
	Step     float64 `yaml:"step,omitempty"`     // 车道面片的纵向采样间隔
	Magnetic float64 `yaml:"magnetic,omitempty"` // 自由端的磁吸延伸长度
	ZRange   float64 `yaml:"z_range,omitempty"`  // 重叠检测的高度范围
}

// ControlStep 指定信控推进时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔
}

// Control 控制配置
type Control struct {
	Step            ControlStep `yaml:"step"`
	SecondsPerPhase float64     `yaml:"seconds_per_phase,omitempty"` // 生成信控的相位时长
}

// Output 输出配置，路径为空则跳过
type Output struct {
	Map     string `yaml:"map,omitempty"`
	GeoJSON string `yaml:"geojson,omitempty"`
}

// Config YAML配置文件的根结构
type Config struct {
	Input     Input      `yaml:"input"`
	Roads     []Road     `yaml:"roads"`
	Junctions []Junction `yaml:"junctions"`
	Index     Index      `yaml:"index"`
	Control   Control    `yaml:"control"`
	Output    Output     `yaml:"output"`
}
