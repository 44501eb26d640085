package verify

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// JUnitTestSuites is the root element of JUnit XML output.
type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a single test suite within the JUnit output.
type JUnitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Cases     []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single invariant check over the recording.
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

// JUnitFailure represents a failed invariant check.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// checkOrder is the fixed order of check cases in the JUnit output.
var checkOrder = []string{CheckDecode, CheckOrder, CheckMessage, CheckTimestamps}

// FormatJUnit writes the Report as JUnit XML to the given writer, one test
// case per invariant check. The timestamp parameter stamps the test suite;
// if zero, the current time is used.
func FormatJUnit(w io.Writer, report *Report, timestamp time.Time) error {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	byCheck := make(map[string][]Problem)
	for _, p := range report.Problems {
		byCheck[p.Check] = append(byCheck[p.Check], p)
	}

	failures := 0
	cases := make([]JUnitTestCase, 0, len(checkOrder))
	for _, check := range checkOrder {
		tc := JUnitTestCase{
			Name:      check,
			Classname: report.File,
			Time:      "0.000",
		}

		if problems := byCheck[check]; len(problems) > 0 {
			failures++
			first := problems[0]
			msg := first.Detail
			if first.Frame > 0 {
				msg = fmt.Sprintf("frame %d: %s", first.Frame, first.Detail)
			}
			if len(problems) > 1 {
				msg = fmt.Sprintf("%s (+%d more)", msg, len(problems)-1)
			}
			tc.Failure = &JUnitFailure{
				Message: msg,
				Type:    "InvariantViolation",
				Content: msg,
			}
		}

		cases = append(cases, tc)
	}

	suites := JUnitTestSuites{
		Name:     "wiretrace",
		Tests:    len(cases),
		Failures: failures,
		Errors:   0,
		Time:     "0.000",
		Suites: []JUnitTestSuite{
			{
				Name:      report.File,
				Tests:     len(cases),
				Failures:  failures,
				Errors:    0,
				Time:      "0.000",
				Timestamp: timestamp.Format(time.RFC3339),
				Cases:     cases,
			},
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
