package metrics

import "time"

// Noop implements Collector by discarding every observation. It is the
// default when no Collector is configured.
type Noop struct{}

func (Noop) SetInflightExecutors(string, int)                            {}
func (Noop) SetQueueDepth(string, int)                                   {}
func (Noop) RecordExecutorLatency(string, string, time.Duration, string) {}
func (Noop) IncSuperSteps(string)                                        {}
func (Noop) IncCheckpoints(string)                                       {}
func (Noop) SetOutstandingRequests(string, int)                          {}
func (Noop) IncFaults(string, string)                                    {}
