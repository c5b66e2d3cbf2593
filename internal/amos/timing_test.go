package amos

import "testing"

const timingCapture = `SectorCarrier=12C1,PmUlInterferenceReport=3 pmRadioRecInterferencePwrBrPrb5 131072
stopfile headers and other noise
250109-08:35:24-0600
SectorCarrier=12C2,PmUlInterferenceReport=1 pmRadioRecInterferencePwrBrPrb0 4096
250109-08:35:26+0100
`

func TestExtractStopfileTime(t *testing.T) {
	timing := NewSectorTiming(nil)

	t.Run("negative zone offset", func(t *testing.T) {
		stamp, ok := timing.ExtractStopfileTime(timingCapture, "12C1")
		if !ok {
			t.Fatal("no timestamp extracted for 12C1")
		}
		if stamp != "250109-08:35:24-0600" {
			t.Errorf("stamp = %q", stamp)
		}
	})

	t.Run("positive zone offset", func(t *testing.T) {
		stamp, ok := timing.ExtractStopfileTime(timingCapture, "12C2")
		if !ok {
			t.Fatal("no timestamp extracted for 12C2")
		}
		if stamp != "250109-08:35:26+0100" {
			t.Errorf("stamp = %q", stamp)
		}
	})

	t.Run("absent sector", func(t *testing.T) {
		if _, ok := timing.ExtractStopfileTime(timingCapture, "99Z9"); ok {
			t.Error("timestamp extracted for absent sector")
		}
	})
}

func TestSampleCount(t *testing.T) {
	timing := NewSectorTiming(nil)
	timing.ExtractStopfileTime(timingCapture, "12C1")

	t.Run("ticks from window offset", func(t *testing.T) {
		// 08:35:24, minute 35 mod 15 = 5: (5*60+24)*1000/40
		if got := timing.SampleCount("12C1"); got != 8100 {
			t.Errorf("SampleCount = %d, want 8100", got)
		}
	})

	t.Run("window offset repeats every fifteen minutes", func(t *testing.T) {
		a := NewSectorTiming(nil)
		a.ExtractStopfileTime("SectorCarrier=S1,\n250109-08:05:24-0600\n", "S1")
		b := NewSectorTiming(nil)
		b.ExtractStopfileTime("SectorCarrier=S1,\n250109-08:20:24-0600\n", "S1")
		if a.SampleCount("S1") != b.SampleCount("S1") {
			t.Errorf("counts differ across windows: %d vs %d", a.SampleCount("S1"), b.SampleCount("S1"))
		}
	})

	t.Run("unknown sector yields zero", func(t *testing.T) {
		if got := timing.SampleCount("99Z9"); got != 0 {
			t.Errorf("SampleCount for unknown sector = %d, want 0", got)
		}
	})

	t.Run("reset clears stored timings", func(t *testing.T) {
		timing.Reset()
		if got := timing.SampleCount("12C1"); got != 0 {
			t.Errorf("SampleCount after Reset = %d, want 0", got)
		}
	})
}
