package task

import "flag"

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// step 推进一步信控：先把当前相位写入车道，再推进信号灯与时钟
func (ctx *Context) step() {
	ctx.junctions.Prepare()
	ctx.junctions.Update(ctx.clock.DT)
	ctx.clock.Tick()

	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof("STEP: %d(%d:%d:%.2f)", ctx.clock.InternalStep, hour, minute, second)
	}
}

// Run 从起始步推进信控直到结束步或Close
func (ctx *Context) Run() {
	ctx.clock.Init()
	for !ctx.clock.Done() && !ctx.closed.Load() {
		ctx.step()
	}
	log.Infof("signal control finished at step %d", ctx.clock.InternalStep)
}
