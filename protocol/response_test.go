package protocol

import "testing"

func TestParseResponse(t *testing.T) {
	testCases := []struct {
		line    string
		kind    ResponseKind
		time    uint32
		payload string
	}{
		{"S\n", ResponseSuccess, 0, ""},
		{"D50\n", ResponseSuccess, 0, "50"},
		{"P\r\n", ResponseSuccess, 0, ""},
		{"X\n", ResponseError, 0, ""},
		{"\n", ResponseError, 0, ""},
		{"", ResponseError, 0, ""},
		{"T1234\n", ResponseTime, 1234, ""},
		{"T0\n", ResponseTime, 0, ""},
		{"T4294967295\n", ResponseTime, 4294967295, ""},
		{"T\n", ResponseError, 0, ""},
		{"T12x\n", ResponseError, 0, ""},
		{"T4294967296\n", ResponseError, 0, ""},
		{"S1,0,25,79999\n", ResponseSuccess, 0, "1,0,25,79999"},
	}

	for _, tc := range testCases {
		got := ParseResponse([]byte(tc.line))
		if got.Kind != tc.kind || got.Time != tc.time || got.Payload != tc.payload {
			t.Errorf("ParseResponse(%q) = %+v, expected kind=%v time=%d payload=%q",
				tc.line, got, tc.kind, tc.time, tc.payload)
		}
	}
}

func TestResponseEncoding(t *testing.T) {
	if got := string(AppendSuccess(nil)); got != "S\n" {
		t.Errorf("AppendSuccess = %q", got)
	}
	if got := string(AppendError(nil)); got != "X\n" {
		t.Errorf("AppendError = %q", got)
	}
	if got := string(AppendTime(nil, 1234)); got != "T1234\n" {
		t.Errorf("AppendTime = %q", got)
	}

	resp := ParseResponse(AppendTime(nil, 98765))
	if resp.Kind != ResponseTime || resp.Time != 98765 {
		t.Errorf("Time reply did not round trip: %+v", resp)
	}
	if !ParseResponse(AppendSuccess(nil)).OK() {
		t.Error("Success reply should decode as OK")
	}
	if ParseResponse(AppendError(nil)).OK() {
		t.Error("Error reply should not decode as OK")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	statuses := []Status{
		{},
		{LEDEnabled: true, PWMEnabled: true, PWMDutyCycle: 25, PWMPeriod: 79999},
		{PWMEnabled: true, PWMDutyCycle: 100, PWMPeriod: 4294967295},
	}

	for _, s := range statuses {
		line := AppendStatus(nil, s)
		resp := ParseResponse(line)
		if resp.Kind != ResponseSuccess {
			t.Errorf("Status line %q decoded as %v", line, resp.Kind)
			continue
		}
		got, err := ParseStatus(resp)
		if err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", line, err)
			continue
		}
		if got != s {
			t.Errorf("Status round trip mismatch: sent %+v, got %+v", s, got)
		}
	}
}

func TestParseStatusInvalid(t *testing.T) {
	payloads := []string{"", "1,1,50", "1,1,50,10,", "2,0,0,0", "1,1,101,0", "1,1,a,0"}
	for _, p := range payloads {
		if _, err := ParseStatus(Response{Kind: ResponseSuccess, Payload: p}); err != ErrInvalidStatus {
			t.Errorf("ParseStatus(%q) error = %v, expected ErrInvalidStatus", p, err)
		}
	}
	if _, err := ParseStatus(Response{Kind: ResponseError}); err != ErrInvalidStatus {
		t.Errorf("ParseStatus(error reply) error = %v, expected ErrInvalidStatus", err)
	}
}
