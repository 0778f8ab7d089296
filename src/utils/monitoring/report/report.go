package report

type Report struct {
	Run        *RunReport        `json:"run,omitempty"`
	Blockfrost *BlockfrostReport `json:"blockfrost,omitempty"`
	Decoder    *DecoderReport    `json:"decoder,omitempty"`
	Collector  *CollectorReport  `json:"collector,omitempty"`
	Worker     *WorkerReport     `json:"worker,omitempty"`
	State      *StateReport      `json:"state,omitempty"`
}

func NewReport() Report {
	return Report{
		Run:        &RunReport{},
		Blockfrost: &BlockfrostReport{},
		Decoder:    &DecoderReport{},
		Collector:  &CollectorReport{},
		Worker:     &WorkerReport{},
		State:      &StateReport{},
	}
}
