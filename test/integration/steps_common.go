package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/orgperm/pkg/manifest"
	"github.com/doodlesbykumbi/orgperm/pkg/model"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})

	// Background steps
	sc.Step(`^a permission server is running$`, s.aPermissionServerIsRunning)
	sc.Step(`^the following manifest is applied:$`, s.theFollowingManifestIsApplied)
	sc.Step(`^I am an operator of "([^"]*)"$`, s.iAmAnOperatorOf)

	// Request steps
	sc.Step(`^I GET "([^"]*)"$`, s.iGET)
	sc.Step(`^I PUT "([^"]*)" with body:$`, s.iPUTWithBody)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, s.theResponseShouldContain)
	sc.Step(`^the selected permissions should be "([^"]*)"$`, s.theSelectedPermissionsShouldBe)
	sc.Step(`^the effective permissions should be "([^"]*)"$`, s.theEffectivePermissionsShouldBe)
	sc.Step(`^the check should be (allowed|denied)$`, s.theCheckShouldBe)

	// Database steps
	sc.Step(`^user "([^"]*)" in "([^"]*)" should have denial "([^"]*)"$`, s.userShouldHaveDenial)
	sc.Step(`^user "([^"]*)" in "([^"]*)" should have (\d+) grant rows?$`, s.userShouldHaveGrantRows)
}

// Background steps

func (s *StepsContext) aPermissionServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) theFollowingManifestIsApplied(doc *godog.DocString) error {
	applier := manifest.NewApplier(manifest.NewGormStore(s.tc.DB))
	_, err := applier.ApplyFromReader(context.Background(), strings.NewReader(doc.Content))
	return err
}

func (s *StepsContext) iAmAnOperatorOf(org string) error {
	token, _, err := s.tc.Auth.Issue("operator@"+org, org)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

// Request steps

func (s *StepsContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+path, body)
	if err != nil {
		return err
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) iGET(path string) error {
	return s.do("GET", path, nil)
}

func (s *StepsContext) iPUTWithBody(path string, body *godog.DocString) error {
	return s.do("PUT", path, bytes.NewBufferString(body.Content))
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected response to contain %q, got %s", expected, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theSelectedPermissionsShouldBe(expected string) error {
	var body struct {
		Selected []string `json:"selected"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse matrix: %w", err)
	}
	return sameIDs(body.Selected, expected)
}

func (s *StepsContext) theEffectivePermissionsShouldBe(expected string) error {
	var body struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse effective permissions: %w", err)
	}
	return sameIDs(body.Permissions, expected)
}

func (s *StepsContext) theCheckShouldBe(outcome string) error {
	var body struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse check: %w", err)
	}
	if body.Allowed != (outcome == "allowed") {
		return fmt.Errorf("expected check to be %s, got %s", outcome, string(s.responseBody))
	}
	return nil
}

// Database steps

func (s *StepsContext) userShouldHaveDenial(user, org, permissionID string) error {
	var row model.UserGrant
	err := s.tc.DB.
		Where("user_id = ? AND organization_id = ? AND permission_id = ?", user, org, permissionID).
		First(&row).Error
	if err != nil {
		return fmt.Errorf("no grant row for %s: %w", permissionID, err)
	}
	if row.IsAllowed {
		return fmt.Errorf("expected %s to be denied for %s", permissionID, user)
	}
	return nil
}

func (s *StepsContext) userShouldHaveGrantRows(user, org string, expected int) error {
	var count int64
	err := s.tc.DB.Model(&model.UserGrant{}).
		Where("user_id = ? AND organization_id = ?", user, org).
		Count(&count).Error
	if err != nil {
		return err
	}
	if int(count) != expected {
		return fmt.Errorf("expected %d grant rows for %s, got %d", expected, user, count)
	}
	return nil
}

// sameIDs compares ids against a comma separated list, ignoring order.
func sameIDs(actual []string, expected string) error {
	want := []string{}
	for _, id := range strings.Split(expected, ",") {
		if id = strings.TrimSpace(id); id != "" {
			want = append(want, id)
		}
	}
	got := append([]string{}, actual...)
	sort.Strings(want)
	sort.Strings(got)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("expected permissions [%s], got [%s]", strings.Join(want, ","), strings.Join(got, ","))
	}
	return nil
}
