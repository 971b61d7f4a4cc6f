package mapper

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"nivel_exporter/internal/types"
)

func ptr(f float64) *float64 {
	return &f
}

var num = types.NumberOf

func reg(r int64) *int64 {
	return &r
}

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func TestBitState_HighBitsAlwaysClear(t *testing.T) {
	registers := []int64{0, 1, 0xFFFF, 0x1FFFF, -1, 1 << 20}
	for _, r := range registers {
		for bit := uint(16); bit < 64; bit++ {
			if BitState(r, bit) {
				t.Errorf("BitState(%#x, %d) = true, want false", r, bit)
			}
		}
	}
}

func TestBitState(t *testing.T) {
	tests := []struct {
		register int64
		bit      uint
		want     bool
	}{
		{0b10, 1, true},
		{0, 1, false},
		{0b10, 0, false},
		{0x8000, 15, true},
		{0b1100_0110, 6, true},
		{0b1100_0110, 7, true},
	}

	for _, tt := range tests {
		if got := BitState(tt.register, tt.bit); got != tt.want {
			t.Errorf("BitState(%#b, %d) = %v, want %v", tt.register, tt.bit, got, tt.want)
		}
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name     string
		register int64
		labels   StatusLabels
		want     string
	}{
		{"all clear pt", 0, LabelsPT, "ESTADO: PARADO SEM CARGA SEM ALARME SEM AVISO"},
		{"running pt", 0b10, LabelsPT, "ESTADO: LIGADO SEM CARGA SEM ALARME SEM AVISO"},
		{"all set pt", 0b1100_0110, LabelsPT, "ESTADO: LIGADO COM CARGA COM ALARME COM AVISO"},
		{"all clear en", 0, LabelsEN, "ESTADO: STOPPED UNLOADED NO-ALARM NO-WARNING"},
		{"loaded alarm en", 0b0100_0100, LabelsEN, "ESTADO: STOPPED LOADED ALARM NO-WARNING"},
		{"bits above 15 ignored", 1 << 17, LabelsEN, "ESTADO: STOPPED UNLOADED NO-ALARM NO-WARNING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusText(DecodeStatus(tt.register), tt.labels)
			if got != tt.want {
				t.Errorf("StatusText(%#b) = %q, want %q", tt.register, got, tt.want)
			}
		})
	}
}

func TestUpdateStatusText_NilKeepsPrevious(t *testing.T) {
	prev := "ESTADO: LIGADO SEM CARGA SEM ALARME SEM AVISO"
	if got := UpdateStatusText(nil, prev, LabelsPT); got != prev {
		t.Errorf("UpdateStatusText(nil) = %q, want %q", got, prev)
	}
	if got := UpdateStatusText(reg(0), prev, LabelsPT); got == prev {
		t.Error("UpdateStatusText(0) should replace the previous text")
	}
}

func TestLabelsFor(t *testing.T) {
	if LabelsFor("en") != LabelsEN {
		t.Error("LabelsFor(en) should return LabelsEN")
	}
	if LabelsFor("") != LabelsPT {
		t.Error("LabelsFor(\"\") should default to LabelsPT")
	}
}

func TestConsumptionRate_Volume(t *testing.T) {
	set := types.SampleSet{
		Order: types.OldestFirst,
		Samples: []types.Sample{
			{Timestamp: t0, WaterVolumeLiters: ptr(100), WaterLevelPercent: ptr(50)},
			{Timestamp: t0.Add(60 * time.Minute), WaterVolumeLiters: ptr(80), WaterLevelPercent: ptr(40)},
		},
	}

	rate := ConsumptionRate(set)
	if rate == nil {
		t.Fatal("ConsumptionRate() = nil, want 0.3 L/min")
	}
	if rate.Value != 0.3 || rate.Unit != UnitLitersPerMinute {
		t.Errorf("ConsumptionRate() = %v %s, want 0.3 L/min", rate.Value, rate.Unit)
	}
}

func TestConsumptionRate_PercentFallback(t *testing.T) {
	set := types.SampleSet{
		Order: types.NewestFirst,
		Samples: []types.Sample{
			{Timestamp: t0.Add(30 * time.Minute), WaterLevelPercent: ptr(45)},
			{Timestamp: t0, WaterLevelPercent: ptr(50), WaterVolumeLiters: ptr(100)},
		},
	}

	rate := ConsumptionRate(set)
	if rate == nil {
		t.Fatal("ConsumptionRate() = nil, want 0.17 %/min")
	}
	if rate.Value != 0.17 || rate.Unit != UnitPercentPerMinute {
		t.Errorf("ConsumptionRate() = %v %s, want 0.17 %%/min", rate.Value, rate.Unit)
	}
}

func TestConsumptionRate_Refill(t *testing.T) {
	set := types.SampleSet{
		Order: types.OldestFirst,
		Samples: []types.Sample{
			{Timestamp: t0, WaterVolumeLiters: ptr(100)},
			{Timestamp: t0.Add(10 * time.Minute), WaterVolumeLiters: ptr(150)},
		},
	}

	rate := ConsumptionRate(set)
	if rate == nil || rate.Value != -5 {
		t.Errorf("ConsumptionRate() = %v, want -5 L/min", rate)
	}
}

func TestConsumptionRate_PicksLatestAtOrBeforeOneHour(t *testing.T) {
	latest := t0.Add(3 * time.Hour)
	set := types.SampleSet{
		Order: types.NewestFirst,
		Samples: []types.Sample{
			{Timestamp: latest, WaterVolumeLiters: ptr(400)},
			{Timestamp: latest.Add(-30 * time.Minute), WaterVolumeLiters: ptr(430)},
			{Timestamp: latest.Add(-60 * time.Minute), WaterVolumeLiters: ptr(460)}, // reference
			{Timestamp: latest.Add(-120 * time.Minute), WaterVolumeLiters: ptr(700)},
		},
	}

	rate := ConsumptionRate(set)
	if rate == nil || rate.Value != 1 {
		t.Errorf("ConsumptionRate() = %v, want 1 L/min", rate)
	}
}

func TestConsumptionRate_OldestFallbackAndMinimumMinute(t *testing.T) {
	set := types.SampleSet{
		Order: types.OldestFirst,
		Samples: []types.Sample{
			{Timestamp: t0, WaterLevelPercent: ptr(60)},
			{Timestamp: t0.Add(20 * time.Second), WaterLevelPercent: ptr(59.5)},
		},
	}

	// 20s rounds to 0 minutes and is clamped to 1.
	rate := ConsumptionRate(set)
	if rate == nil || rate.Value != 0.5 {
		t.Errorf("ConsumptionRate() = %v, want 0.5 %%/min", rate)
	}
}

func TestConsumptionRate_Insufficient(t *testing.T) {
	tests := []struct {
		name string
		set  types.SampleSet
	}{
		{"empty", types.SampleSet{}},
		{"single sample", types.SampleSet{Samples: []types.Sample{
			{Timestamp: t0, WaterVolumeLiters: ptr(100), WaterLevelPercent: ptr(50)},
		}}},
		{"no comparable readings", types.SampleSet{Order: types.OldestFirst, Samples: []types.Sample{
			{Timestamp: t0, WaterVolumeLiters: ptr(100)},
			{Timestamp: t0.Add(time.Hour), WaterLevelPercent: ptr(50)},
		}}},
		{"latest without time", types.SampleSet{Order: types.OldestFirst, Samples: []types.Sample{
			{Timestamp: t0, WaterLevelPercent: ptr(50)},
			{WaterLevelPercent: ptr(40)},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rate := ConsumptionRate(tt.set); rate != nil {
				t.Errorf("ConsumptionRate() = %v, want nil", rate)
			}
		})
	}
}

func TestBuildWindow(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 5, 0, 0, time.UTC)
	w := BuildWindow(now)

	if !w.Start.Equal(time.Date(2024, 1, 15, 12, 5, 0, 0, time.UTC)) {
		t.Errorf("Start = %v, want 12:05", w.Start)
	}
	if !w.End.Equal(now) {
		t.Errorf("End = %v, want %v", w.End, now)
	}

	want := []string{"12:00", "12:30", "13:00", "13:30", "14:00"}
	if len(w.Ticks) != len(want) {
		t.Fatalf("Ticks length = %d, want %d", len(w.Ticks), len(want))
	}
	for i, tick := range w.Ticks {
		if got := tick.Format("15:04"); got != want[i] {
			t.Errorf("Ticks[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestBuildWindow_OnBoundaryIncludesNow(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	w := BuildWindow(now)

	if len(w.Ticks) != 5 {
		t.Fatalf("Ticks length = %d, want 5", len(w.Ticks))
	}
	if !w.Ticks[0].Equal(w.Start) {
		t.Errorf("Ticks[0] = %v, want window start %v", w.Ticks[0], w.Start)
	}
	if !w.Ticks[4].Equal(now) {
		t.Errorf("last tick = %v, want %v", w.Ticks[4], now)
	}
}

func TestBuildWindow_UsesLocalWallClock(t *testing.T) {
	loc := time.FixedZone("NPT", 5*3600+45*60)
	now := time.Date(2024, 1, 15, 14, 5, 0, 0, loc)
	w := BuildWindow(now)

	if got := w.Ticks[0].Format("15:04"); got != "12:00" {
		t.Errorf("first tick = %s, want 12:00 local", got)
	}
}

func TestSamplesFromRecords(t *testing.T) {
	records := []types.LevelRecord{
		{Hour: "2024-01-15T10:30:00.000Z", WaterLevel: num(72.5), WaterVolume: num(3625), Pump1: true, State: num(6)},
		{Hour: "  ", CreatedAt: "2024-01-15 10:29:00", WaterLevel: num(72.8)},
		{},
	}

	samples := SamplesFromRecords(records)
	if len(samples) != 3 {
		t.Fatalf("len = %d, want 3", len(samples))
	}
	if samples[0].Timestamp.Unix() != 1705314600 {
		t.Errorf("Timestamp = %v, want 2024-01-15T10:30:00Z", samples[0].Timestamp)
	}
	if !samples[0].Pumps.Pump1 || samples[0].Pumps.Pump2 {
		t.Errorf("Pumps = %+v, want only pump1 on", samples[0].Pumps)
	}
	if samples[0].StatusRegister == nil || *samples[0].StatusRegister != 6 {
		t.Errorf("StatusRegister = %v, want 6", samples[0].StatusRegister)
	}
	if samples[1].Timestamp.IsZero() {
		t.Error("created_at should be used when hour is missing")
	}
	if !samples[2].Timestamp.IsZero() || samples[2].WaterLevelPercent != nil {
		t.Error("empty record should yield an empty sample")
	}
}

func TestSamplesFromLegacy(t *testing.T) {
	ref := time.Date(2024, 1, 15, 0, 30, 0, 0, time.UTC)
	legacy := types.LegacyLevels{
		StateData: []types.Number{num(0), num(2)},
		LevelData: []types.Number{num(70), num(69)},
		TimeData:  []string{"23:59:00", "00:29:00"},
	}

	samples := SamplesFromLegacy(legacy, ref)
	if len(samples) != 2 {
		t.Fatalf("len = %d, want 2", len(samples))
	}
	if want := time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC); !samples[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp[0] = %v, want %v", samples[0].Timestamp, want)
	}
	if want := time.Date(2024, 1, 15, 0, 29, 0, 0, time.UTC); !samples[1].Timestamp.Equal(want) {
		t.Errorf("Timestamp[1] = %v, want %v", samples[1].Timestamp, want)
	}
	if *samples[1].StatusRegister != 2 || *samples[1].WaterLevelPercent != 69 {
		t.Errorf("samples[1] = %+v, want register 2 level 69", samples[1])
	}
}

func TestSeriesFromBuckets(t *testing.T) {
	buckets := []types.Bucket{
		{Hour: "2024-01-15T12:00:00Z", WaterLevel: num(60)},
		{Hour: "garbage", WaterLevel: num(1)},
		{Hour: "2024-01-15T11:00:00Z", WaterLevel: num(65)},
		{Hour: "2024-01-15T13:00:00Z"},
	}

	points := SeriesFromBuckets(buckets)
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].Value != 65 || points[1].Value != 60 {
		t.Errorf("points = %v, want ascending 65, 60", points)
	}
}

func TestIndicators(t *testing.T) {
	inds := Indicators(types.PumpFlags{Pump2: true, PumpAux: true})
	if len(inds) != 7 {
		t.Fatalf("len = %d, want 7", len(inds))
	}
	if inds[0].Label != "Bomba 1" || inds[0].On || inds[0].State != StateOff {
		t.Errorf("inds[0] = %+v, want Bomba 1 off", inds[0])
	}
	if inds[1].Key != RelayPump2 || !inds[1].On || inds[1].State != StateOn {
		t.Errorf("inds[1] = %+v, want pump2 on", inds[1])
	}
	if inds[4].Key != RelayPumpAux || !inds[4].On {
		t.Errorf("inds[4] = %+v, want pump_aux on", inds[4])
	}
}

func TestDerive(t *testing.T) {
	set := types.SampleSet{
		Order: types.NewestFirst,
		Samples: []types.Sample{
			{Timestamp: t0.Add(time.Hour), WaterLevelPercent: ptr(40), WaterVolumeLiters: ptr(80), StatusRegister: reg(0b10),
				Pumps: types.PumpFlags{Pump1: true}},
			{Timestamp: t0, WaterLevelPercent: ptr(50), WaterVolumeLiters: ptr(100)},
		},
	}
	in := DeriveInput{Set: set, Now: t0.Add(time.Hour + time.Minute), Labels: LabelsPT}

	view, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	if view.WaterLevelPercent != 40 {
		t.Errorf("WaterLevelPercent = %v, want 40", view.WaterLevelPercent)
	}
	if view.WaterVolumeLiters == nil || *view.WaterVolumeLiters != 80 {
		t.Errorf("WaterVolumeLiters = %v, want 80", view.WaterVolumeLiters)
	}
	if view.StatusText != "ESTADO: LIGADO SEM CARGA SEM ALARME SEM AVISO" {
		t.Errorf("StatusText = %q", view.StatusText)
	}
	if view.StatusFlags == nil || !view.StatusFlags.Running {
		t.Errorf("StatusFlags = %v, want running", view.StatusFlags)
	}
	if view.ConsumptionRate == nil || view.ConsumptionRate.Value != 0.3 {
		t.Errorf("ConsumptionRate = %v, want 0.3", view.ConsumptionRate)
	}
	if len(view.Series) != 2 || view.Series[0].Value != 50 {
		t.Errorf("Series = %v, want oldest-first [50 40]", view.Series)
	}
	if !view.Pumps.Pump1 || !view.Indicators[0].On {
		t.Error("pump1 should be on")
	}
}

func TestDerive_KeepsPreviousStatusAndPrefersBuckets(t *testing.T) {
	set := types.SampleSet{Samples: []types.Sample{{Timestamp: t0, WaterLevelPercent: ptr(50)}}}
	in := DeriveInput{
		Set:            set,
		Buckets:        []types.Bucket{{Hour: "2024-01-15T09:00:00Z", WaterLevel: num(55)}},
		Now:            t0,
		PrevStatusText: "ESTADO: LIGADO COM CARGA SEM ALARME SEM AVISO",
		Labels:         LabelsPT,
	}

	view, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if view.StatusText != in.PrevStatusText {
		t.Errorf("StatusText = %q, want previous %q", view.StatusText, in.PrevStatusText)
	}
	if view.StatusFlags != nil {
		t.Errorf("StatusFlags = %v, want nil without a register", view.StatusFlags)
	}
	if view.ConsumptionRate != nil {
		t.Errorf("ConsumptionRate = %v, want nil for a single sample", view.ConsumptionRate)
	}
	if len(view.Series) != 1 || view.Series[0].Value != 55 {
		t.Errorf("Series = %v, want bucket series", view.Series)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	set := types.SampleSet{
		Order: types.OldestFirst,
		Samples: []types.Sample{
			{Timestamp: t0, WaterLevelPercent: ptr(50), StatusRegister: reg(0x46)},
			{Timestamp: t0.Add(30 * time.Minute), WaterLevelPercent: ptr(45), StatusRegister: reg(0x86)},
		},
	}
	in := DeriveInput{Set: set, Now: t0.Add(time.Hour), Labels: LabelsEN}

	first, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	second, _ := Derive(in)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Derive() not idempotent:\n%+v\n%+v", first, second)
	}
	if set.Samples[0].WaterLevelPercent == nil || *set.Samples[0].WaterLevelPercent != 50 {
		t.Error("Derive() must not modify its input")
	}
}

func TestDerive_Empty(t *testing.T) {
	_, err := Derive(DeriveInput{Now: t0})
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("Derive() error = %v, want ErrNoSamples", err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"empty", "", 0},
		{"ISO8601", "2024-01-15T10:30:00.000Z", 1705314600},
		{"offset", "2024-01-15T07:30:00-03:00", 1705314600},
		{"SQL", "2024-01-15 10:30:00", 1705314600},
		{"ISO without zone", "2024-01-15T10:30:00", 1705314600},
		{"invalid", "not-a-date", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimeIn(tt.input, time.UTC)
			var unix int64
			if !got.IsZero() {
				unix = got.Unix()
			}
			if unix != tt.want {
				t.Errorf("ParseTimeIn(%q) = %d, want %d", tt.input, unix, tt.want)
			}
		})
	}
}

func TestParseTime_ZonelessIsLocal(t *testing.T) {
	got := ParseTime("2024-01-15 10:30:00")
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseTime() = %v, want %v", got, want)
	}
}

func TestParseTimeIn_ZonelessFallsInsideWindow(t *testing.T) {
	brt := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, brt)
	w := BuildWindow(now)

	for _, s := range []string{"2024-01-15 10:30:00", "2024-01-15T09:00:00", "2024-01-15 08:30:00"} {
		ts := ParseTimeIn(s, brt)
		if ts.Before(w.Start) || ts.After(w.End) {
			t.Errorf("ParseTimeIn(%q) = %v, outside window [%v, %v]", s, ts, w.Start, w.End)
		}
	}
}

func TestSamplesFromLegacy_ZonelessDatetimeUsesRefZone(t *testing.T) {
	brt := time.FixedZone("BRT", -3*3600)
	ref := time.Date(2024, 1, 15, 10, 30, 0, 0, brt)
	legacy := types.LegacyLevels{
		LevelData: []types.Number{num(70), num(69)},
		TimeData:  []string{"2024-01-15 10:00:00", "10:29:00"},
	}

	samples := SamplesFromLegacy(legacy, ref)
	if want := time.Date(2024, 1, 15, 10, 0, 0, 0, brt); !samples[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp[0] = %v, want %v", samples[0].Timestamp, want)
	}
	if want := time.Date(2024, 1, 15, 10, 29, 0, 0, brt); !samples[1].Timestamp.Equal(want) {
		t.Errorf("Timestamp[1] = %v, want %v", samples[1].Timestamp, want)
	}
}

func TestSamplesFromRecords_HourTakesPrecedence(t *testing.T) {
	samples := SamplesFromRecords([]types.LevelRecord{
		{Hour: "2024-01-15T10:30:00Z", CreatedAt: "2024-01-15T09:00:00Z"},
	})
	if samples[0].Timestamp.Unix() != 1705314600 {
		t.Errorf("Timestamp = %v, want hour 10:30Z", samples[0].Timestamp)
	}
}

func TestSafe(t *testing.T) {
	tests := []struct {
		value    string
		fallback string
		want     string
	}{
		{"value", "fallback", "value"},
		{"  value  ", "fallback", "value"},
		{"", "fallback", "fallback"},
		{"  ", "fallback", "fallback"},
	}

	for _, tt := range tests {
		got := Safe(tt.value, tt.fallback)
		if got != tt.want {
			t.Errorf("Safe(%q, %q) = %q, want %q", tt.value, tt.fallback, got, tt.want)
		}
	}
}
