package reporter

import (
	"encoding/xml"
	"fmt"
	"time"

	"api-conformance/internal/types"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// JUnit renders the report as JUnit XML: one testsuite per module, one
// testcase per endpoint named "<METHOD> <path>".
func JUnit(r *Report) ([]byte, error) {
	doc := junitSuites{
		Name:     "conformance",
		Tests:    r.Summary.Total,
		Failures: r.Summary.Failed,
		Errors:   r.Summary.Errored,
		Time:     seconds(r.Duration),
	}

	for _, m := range r.Modules {
		c := m.Counts()
		suite := junitSuite{
			Name:      m.Module,
			Tests:     c.Total,
			Failures:  c.Failed,
			Errors:    c.Errored,
			Time:      seconds(m.EndTime.Sub(m.StartTime)),
			Timestamp: m.StartTime.UTC().Format("2006-01-02T15:04:05"),
		}
		for _, g := range m.Groups {
			for _, cr := range g.Cases {
				tc := junitCase{
					Name:      cr.Title(),
					Classname: m.Module + "." + string(g.Method),
					Time:      seconds(cr.Duration),
				}
				switch cr.Outcome {
				case types.OutcomeFail:
					tc.Failure = &junitFailure{Message: cr.Message, Type: "status", Text: fmt.Sprintf("%s returned %d", cr.Name, cr.Status)}
				case types.OutcomeError:
					tc.Error = &junitFailure{Message: cr.Message, Type: "error", Text: cr.Name}
				}
				suite.Cases = append(suite.Cases, tc)
			}
		}
		doc.Suites = append(doc.Suites, suite)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
