package task

import (
	"sync/atomic"

	"github.com/tsinghua-fib-lab/agentsociety-roadgen/clock"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/spatial"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/input"
)

// Context 路网生成任务上下文
// 功能：持有道路、路口、空间索引与信控时钟，编辑操作在此完成道路重建、路口通知与表面索引的同步
// 说明：单线程同步模型，编辑操作由调用方串行执行
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 输入地图，未配置时为nil
	input *input.Input

	// Road管理器
	roads *road.RoadManager
	// Junction管理器
	junctions *junction.JunctionManager
	// 车道表面索引
	index *spatial.Indexer
	// 每条道路在索引中的面片
	surfaces map[int32][]spatial.FaceKey
}

// NewContext 根据配置创建任务上下文
// 功能：加载输入地图，创建全部道路与路口，生成车道表面索引
// 返回：配置中的道路或路口不合法时返回错误
func NewContext(c config.Config) (*Context, error) {
	ctx := &Context{
		clock:         clock.New(c.Control.Step),
		runtimeConfig: config.NewRuntimeConfig(c),
		roads:         road.NewManager(),
		index:         spatial.New(),
		surfaces:      make(map[int32][]spatial.FaceKey),
	}
	ctx.junctions = junction.NewManager(ctx.roads, ctx.runtimeConfig.C.SecondsPerPhase)
	if c.Input.Map != "" {
		in, err := input.Load(c.Input.Map)
		if err != nil {
			return nil, err
		}
		ctx.input = in
	}
	if err := ctx.build(c); err != nil {
		return nil, err
	}
	ctx.refresh()
	log.Infof("Road: %d", ctx.roads.Len())
	log.Infof("Junction: %d", ctx.junctions.Len())
	log.Infof("Face: %d", ctx.index.FaceCount())
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Roads() *road.RoadManager {
	return ctx.roads
}

func (ctx *Context) Junctions() *junction.JunctionManager {
	return ctx.junctions
}

func (ctx *Context) Index() *spatial.Indexer {
	return ctx.index
}

// Close 让Run在当前步结束后返回
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}
