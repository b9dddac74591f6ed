package opt

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ctrltune/internal/controller"
	"ctrltune/internal/metrics"
	"ctrltune/internal/model"
)

// Optimizer runs an ordered stage pipeline over the factory defaults. It holds
// no mutable state and is safe for concurrent use.
type Optimizer struct {
	stages []Stage
	log    logrus.FieldLogger
}

// New builds an optimizer. With no stages the default pipeline is used. The
// safety clamp always runs after the supplied stages and cannot be removed.
func New(stages ...Stage) *Optimizer {
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Optimizer{stages: append([]Stage(nil), stages...), log: logrus.StandardLogger()}
}

// WithLogger sets the logger used for input fallbacks and returns o.
func (o *Optimizer) WithLogger(l logrus.FieldLogger) *Optimizer {
	if l != nil {
		o.log = l
	}
	return o
}

// Stages returns the names of the configured stages, clamp included.
func (o *Optimizer) Stages() []string {
	names := make([]string, 0, len(o.stages)+1)
	for _, s := range o.stages {
		names = append(names, s.Name)
	}
	return append(names, "safety-clamp")
}

// Optimize derives a safe parameter vector. It never fails: absent fields
// take documented defaults and the final clamp is the correctness backstop.
func (o *Optimizer) Optimize(req model.OptimizeRequest) model.OptimizationResult {
	start := time.Now()
	ctx := analyze(req, o.log)
	factory := controller.FactoryDefaults()
	v := factory.Clone()
	for _, s := range o.stages {
		v = s.Apply(ctx, v)
	}
	ctx.Clamped = safetyClamp(v)
	res := model.OptimizationResult{
		FactorySettings:    factory,
		OptimizedSettings:  v,
		PerformanceChanges: summarize(ctx, factory, v),
		Analysis:           ctx,
		Confidence:         1.0,
	}
	metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	return res
}

// safetyClamp forces every constrained function into bounds. A vector that is
// still out of bounds afterwards is a programming defect.
func safetyClamp(v controller.Vector) []controller.Function {
	changed := v.Clamp()
	if bad := v.Violations(); len(bad) > 0 {
		panic(fmt.Sprintf("opt: safety clamp left %v out of bounds", bad))
	}
	return changed
}

var defaultOptimizer = New()

// Optimize runs the default pipeline.
func Optimize(vehicle model.VehicleProfile, battery model.BatteryProfile, wheel model.WheelProfile, env model.EnvironmentProfile, priorities model.PriorityWeights) model.OptimizationResult {
	return defaultOptimizer.Optimize(model.OptimizeRequest{
		Vehicle:     vehicle,
		Battery:     battery,
		Wheel:       wheel,
		Environment: env,
		Priorities:  priorities,
	})
}
