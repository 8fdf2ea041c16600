// internal/scheduler/report.go
package scheduler

import "github.com/golang/glog"

// LogReporter writes cycle reports to glog.
//
//	overrun            always, warning
//	acquire / publish  error
//	saturation         V(1)
//	slack              V(2)
type LogReporter struct{}

func (LogReporter) Report(r Report) {
	if r.AcquireErr != nil {
		glog.Errorf("cycle %d: %v", r.Seq, r.AcquireErr)
	}
	if r.Skipped {
		glog.Warningf("cycle %d: publish skipped after acquisition failure", r.Seq)
	}
	if r.PublishErr != nil {
		glog.Errorf("cycle %d: %v", r.Seq, r.PublishErr)
	}
	if r.WaitErr != nil {
		glog.Errorf("cycle %d: deadline wait: %v", r.Seq, r.WaitErr)
	}
	if r.Overrun != nil {
		glog.Warningf("%v", r.Overrun)
		return
	}
	if r.Saturated && bool(glog.V(1)) {
		glog.Infof("cycle %d: pulse counter saturated", r.Seq)
	}
	if glog.V(2) {
		glog.Infof("cycle %d: elapsed=%s waited=%s slack=%s published=%d",
			r.Seq, r.Elapsed, r.Waited, r.Slack, r.Published)
	}
}

// Reporters fans a report out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) Report(r Report) {
	for _, x := range rs {
		x.Report(r)
	}
}
