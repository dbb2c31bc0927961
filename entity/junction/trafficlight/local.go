package trafficlight

import (
	"flag"
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

var (
	phaseTime  = flag.Float64("tl.phase_time", 15, "固定周期信控每个相位的时长（含黄灯）")
	yellowTime = flag.Float64("tl.yellow_time", 3, "固定周期信控相位切换时的黄灯时长")
)

// LaneLightSetter 信号灯写入车道的接口
type LaneLightSetter interface {
	SetLight(state mapv2.LightState, totalTime float64, remainingTime float64)
}

// BuildProgram 由生成的相位构造固定周期信控程序
// 功能：每个相位先放行，再对下一相位不放行的车道亮黄灯
// 参数：junctionID-路口ID，green-每个相位中各车道是否放行（phase×lane），seconds-相位时长，<=0时使用默认值
// 返回：信控程序，相位数少于2时返回nil（不需要信控）
func BuildProgram(junctionID int32, green [][]bool, seconds float64) *mapv2.TrafficLight {
	if len(green) < 2 {
		return nil
	}
	if seconds <= 0 {
		seconds = *phaseTime
	}
	yellow := min(*yellowTime, seconds/2)
	state := func(g bool) mapv2.LightState {
		if g {
			return mapv2.LightState_LIGHT_STATE_GREEN
		}
		return mapv2.LightState_LIGHT_STATE_RED
	}
	tl := &mapv2.TrafficLight{JunctionId: junctionID}
	for i, cur := range green {
		next := green[(i+1)%len(green)]
		tl.Phases = append(tl.Phases, &mapv2.Phase{
			Duration: seconds - yellow,
			States:   lo.Map(cur, func(g bool, _ int) mapv2.LightState { return state(g) }),
		})
		if yellow > 0 {
			tl.Phases = append(tl.Phases, &mapv2.Phase{
				Duration: yellow,
				States: lo.Map(cur, func(g bool, j int) mapv2.LightState {
					if g && !next[j] {
						return mapv2.LightState_LIGHT_STATE_YELLOW
					}
					return state(g)
				}),
			})
		}
	}
	return tl
}

// localTlRuntime 本地信号灯运行时数据结构
type localTlRuntime struct {
	tl           *mapv2.TrafficLight
	tlStep       int32
	tlTotalTime  float64
	tlRemainingT float64
}

// LocalTrafficLight 固定周期信号灯控制器
// 功能：按信控程序的相位顺序与时长循环切换，并把每条车道的灯色与剩余时间写入车道
type LocalTrafficLight struct {
	JunctionID int32             // 所属junction ID
	lanes      []LaneLightSetter // 车道数据

	timeBeforeChange [][]float64     // 下一次信号灯变化时间（相位切换时不一定所有的信号灯都变）
	snapshot         localTlRuntime  // snapshot，用于保存输出的数据
	runtime          localTlRuntime  // 运行时数据
	buffer           *localTlRuntime // 数据buffer，用于交互式接口写入(optional)
	ok               bool            // 信号灯状态，true为开启，false为关闭
	okBuffer         bool            // 信号灯状态buffer
}

// NewLocalTrafficLight 创建固定周期信号灯控制器
func NewLocalTrafficLight(junctionID int32, lanes []LaneLightSetter) *LocalTrafficLight {
	return &LocalTrafficLight{
		JunctionID: junctionID,
		lanes:      lanes,
		ok:         true,
		okBuffer:   true,
	}
}

// Prepare 准备阶段
// 功能：更新开关状态，将当前相位写入车道；没有程序或信控关闭时全绿
func (l *LocalTrafficLight) Prepare() {
	l.ok = l.okBuffer
	l.snapshot = l.runtime
	if l.snapshot.tl == nil || !l.ok {
		for _, lane := range l.lanes {
			lane.SetLight(mapv2.LightState_LIGHT_STATE_GREEN, mathutil.INF, mathutil.INF)
		}
		return
	}
	p := l.snapshot.tl.Phases[l.snapshot.tlStep]
	for i, lane := range l.lanes {
		lane.SetLight(
			p.States[i],
			l.snapshot.tlTotalTime+l.timeBeforeChange[i][l.snapshot.tlStep],
			l.snapshot.tlRemainingT+l.timeBeforeChange[i][l.snapshot.tlStep],
		)
	}
}

// computeTimeBeforeChange 计算每条车道在每个相位结束后还要保持当前灯色的时长
// 算法说明：从后往前累加与本相位同色的后续相位时长；所有相位同色则为无穷；首尾相位同色时跨周期累加
func (l *LocalTrafficLight) computeTimeBeforeChange() {
	l.timeBeforeChange = l.timeBeforeChange[:0]
	phases := l.runtime.tl.Phases
	numPhases := len(phases)
	for laneIndex := range l.lanes {
		time := make([]float64, numPhases)
		allTheSame := true
		for phaseIndex := numPhases - 2; phaseIndex >= 0; phaseIndex-- {
			if phases[phaseIndex+1].States[laneIndex] == phases[phaseIndex].States[laneIndex] {
				time[phaseIndex] = time[phaseIndex+1] + phases[phaseIndex+1].Duration
			} else {
				allTheSame = false
			}
		}
		if allTheSame {
			for idx := range time {
				time[idx] = mathutil.INF
			}
		} else {
			first := phases[0].States[laneIndex]
			t0 := time[0] + phases[0].Duration
			for phaseIndex := numPhases - 1; phaseIndex >= 0; phaseIndex-- {
				if phases[phaseIndex].States[laneIndex] != first {
					break
				}
				time[phaseIndex] += t0
			}
		}
		l.timeBeforeChange = append(l.timeBeforeChange, time)
	}
}

// Update 更新阶段
// 功能：应用buffer中写入的程序，按剩余时间切换相位
// 参数：dt-时间步长
func (l *LocalTrafficLight) Update(dt float64) {
	if l.buffer != nil {
		l.runtime = *l.buffer
		l.buffer = nil
		if l.runtime.tl != nil {
			l.computeTimeBeforeChange()
		}
	}
	if l.runtime.tl == nil || !l.ok {
		return
	}

	l.runtime.tlRemainingT -= dt
	if l.runtime.tlRemainingT <= 0 {
		l.runtime.tlRemainingT = 0
		l.runtime.tlTotalTime = 0
		for {
			l.runtime.tlStep = (l.runtime.tlStep + 1) % int32(len(l.runtime.tl.Phases))
			l.runtime.tlRemainingT += l.runtime.tl.Phases[l.runtime.tlStep].Duration
			if l.runtime.tlRemainingT > 0 {
				l.runtime.tlTotalTime = l.runtime.tlRemainingT
				break
			}
		}
		log.Debugf("junction %d switches to phase %d", l.JunctionID, l.runtime.tlStep)
	}
}

// Get 当前信号灯程序
func (l *LocalTrafficLight) Get() *mapv2.TrafficLight {
	return l.snapshot.tl
}

// Set 设置信号灯程序，下一个更新周期生效
func (l *LocalTrafficLight) Set(tl *mapv2.TrafficLight) error {
	if tl.JunctionId != l.JunctionID {
		return fmt.Errorf("set junction %d with wrong traffic light id %d", l.JunctionID, tl.JunctionId)
	}
	if len(l.lanes) == 0 {
		return fmt.Errorf("no lane data in junction %d", l.JunctionID)
	}
	if len(tl.Phases) == 0 {
		return fmt.Errorf("set with empty traffic light")
	}
	for _, p := range tl.Phases {
		if len(p.States) != len(l.lanes) {
			return fmt.Errorf("number of lanes %d and traffic light states %d does not match", len(l.lanes), len(p.States))
		}
	}
	l.buffer = &localTlRuntime{
		tl: tl, tlStep: 0, tlTotalTime: tl.Phases[0].Duration, tlRemainingT: tl.Phases[0].Duration,
	}
	return nil
}

// Unset 取消信号灯程序（全绿）
func (l *LocalTrafficLight) Unset() {
	l.buffer = &localTlRuntime{}
}

// SetPhase 设置当前相位与剩余时间
func (l *LocalTrafficLight) SetPhase(offset int32, remainingT float64) {
	if l.runtime.tl == nil {
		return
	}
	if l.buffer != nil {
		l.buffer.tlRemainingT = remainingT
		l.buffer.tlStep = offset
	} else {
		l.buffer = &localTlRuntime{
			tl: l.runtime.tl, tlStep: offset, tlTotalTime: remainingT, tlRemainingT: remainingT,
		}
	}
}

// SetOk 设置信号灯开关
func (l *LocalTrafficLight) SetOk(ok bool) {
	l.okBuffer = ok
}

// Step 当前相位序号
func (l *LocalTrafficLight) Step() int32 {
	return l.snapshot.tlStep
}

// RemainingTime 当前相位剩余时间
func (l *LocalTrafficLight) RemainingTime() float64 {
	return l.snapshot.tlRemainingT
}

// Ok 信号灯是否工作
func (l *LocalTrafficLight) Ok() bool {
	return l.ok
}
