package pipeline

import "context"

type multiSink []RecordSink

// MultiSink fans each page result out to every given sink in order. The
// first sink error stops delivery for that page.
func MultiSink(sinks ...RecordSink) RecordSink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multiSink(sinks)
}

func (m multiSink) WritePage(ctx context.Context, result PageResult) error {
	for _, s := range m {
		if err := s.WritePage(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
