package task

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
)

// neighbours 道路本身以及与它接入同一路口的道路
func (ctx *Context) neighbours(roadID int32) []int32 {
	ids := []int32{roadID}
	for _, j := range ctx.junctions.All() {
		infos := j.FormedFrom()
		if lo.ContainsBy(infos, func(info junction.ConnectionInfo) bool { return info.Road == roadID }) {
			ids = append(ids, lo.Map(infos, func(info junction.ConnectionInfo, _ int) int32 { return info.Road })...)
		}
	}
	return lo.Uniq(ids)
}

// OverwriteSection 修改道路一段范围内某一侧的车道配置，重新生成道路并通知路口
func (ctx *Context) OverwriteSection(roadID int32, side int, start, end float64, lanes uint8, offsetX2 int8) error {
	r, err := ctx.roads.GetOrError(roadID)
	if err != nil {
		return err
	}
	if err := r.Profile().OverwriteSection(side, profile.FromMeters(start), profile.FromMeters(end), lanes, profile.HalfWidth(offsetX2)); err != nil {
		return err
	}
	ctx.roads.Regenerate([]int32{roadID})
	err = ctx.junctions.NotifyRoadChange(entity.ChangeDetail{Type: entity.ChangeOthers, Subject: roadID})
	ctx.refresh(ctx.neighbours(roadID)...)
	return err
}

// ReverseRoad 反向道路
func (ctx *Context) ReverseRoad(roadID int32) error {
	before := ctx.neighbours(roadID)
	err := ctx.junctions.ReverseRoad(roadID)
	ctx.refresh(append(before, ctx.neighbours(roadID)...)...)
	return err
}

// RemoveRoad 移除道路，接入的路口随之重建或解散
func (ctx *Context) RemoveRoad(roadID int32) error {
	before := ctx.neighbours(roadID)
	err := ctx.junctions.RemoveRoad(roadID)
	ctx.refresh(before...)
	return err
}

// DetachEnd 编辑拖动道路终点时临时断开终点处的路口连接
func (ctx *Context) DetachEnd(roadID int32) error {
	err := ctx.junctions.NotifyRoadChange(entity.ChangeDetail{Type: entity.ChangeDetachAtEndTemp, Subject: roadID})
	ctx.refresh(roadID)
	return err
}

// AttachToJunction 把道路端点接入已有路口
func (ctx *Context) AttachToJunction(junctionID int32, info junction.ConnectionInfo) error {
	j, err := ctx.junctions.GetOrError(junctionID)
	if err != nil {
		return err
	}
	before := lo.Map(j.FormedFrom(), func(info junction.ConnectionInfo, _ int) int32 { return info.Road })
	err = j.Attach(info)
	ctx.refresh(append(before, info.Road)...)
	return err
}

// DegenerateJunction 两条道路之间的路口退化为一条道路
// 返回：合并后保留的道路
func (ctx *Context) DegenerateJunction(junctionID int32) (int32, error) {
	kept, err := ctx.junctions.Degenerate(junctionID)
	if kept == 0 {
		return 0, err
	}
	ctx.refresh(ctx.neighbours(kept)...)
	return kept, err
}
