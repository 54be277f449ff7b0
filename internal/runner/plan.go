package runner

import "time"

// Plan is a compiled load profile: the target VU count as a function of elapsed time.
type Plan struct {
	segments []planSegment
	duration time.Duration
	startVUs int
	maxVUs   int
}

type planSegment struct {
	start    time.Duration
	duration time.Duration
	fromVUs  int
	toVUs    int
}

// CompilePlan turns stages into a Plan. A stage with zero duration jumps to
// its target instantly; the next stage ramps from there.
func CompilePlan(startVUs int, stages []Stage) *Plan {
	if startVUs < 0 {
		startVUs = 0
	}
	plan := &Plan{startVUs: startVUs, maxVUs: startVUs}
	from := startVUs
	var offset time.Duration
	for _, stage := range stages {
		target := stage.Target
		if target < 0 {
			target = 0
		}
		if target > plan.maxVUs {
			plan.maxVUs = target
		}
		if stage.Duration <= 0 {
			from = target
			continue
		}
		plan.segments = append(plan.segments, planSegment{
			start:    offset,
			duration: stage.Duration,
			fromVUs:  from,
			toVUs:    target,
		})
		from = target
		offset += stage.Duration
	}
	plan.duration = offset
	return plan
}

// TargetAt returns the number of VUs that should be active after elapsed.
// The second result is false once the profile has ended.
func (p *Plan) TargetAt(elapsed time.Duration) (int, bool) {
	if p == nil || len(p.segments) == 0 {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	for _, seg := range p.segments {
		end := seg.start + seg.duration
		if elapsed < seg.start || elapsed >= end {
			continue
		}
		if seg.fromVUs == seg.toVUs {
			return seg.fromVUs, true
		}
		progress := float64(elapsed-seg.start) / float64(seg.duration)
		// Truncation toward zero: ramps up reach the next VU only once it is
		// fully due, ramps down keep a VU until it is fully gone.
		delta := int(float64(seg.toVUs-seg.fromVUs) * progress)
		return seg.fromVUs + delta, true
	}
	return 0, false
}

// Duration is the total length of all stages.
func (p *Plan) Duration() time.Duration {
	if p == nil {
		return 0
	}
	return p.duration
}

// MaxVUs is the highest VU count the plan ever asks for.
func (p *Plan) MaxVUs() int {
	if p == nil {
		return 0
	}
	return p.maxVUs
}
