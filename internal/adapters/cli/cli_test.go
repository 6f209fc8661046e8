package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budget-engine/internal/app"
	"budget-engine/internal/core"

	"github.com/shopspring/decimal"
)

type stubService struct {
	app.ApplicationService

	resolved   app.ResolvePriceRequest
	performed  core.Action
	transition core.RevisionStatus
	imported   app.PricebookImport
	promoteErr error
}

func (s *stubService) ResolvePrice(_ context.Context, req app.ResolvePriceRequest) (*app.PriceResult, error) {
	s.resolved = req
	item := core.ItemRef{Type: core.ItemMaterial, ID: req.ItemID}
	return &app.PriceResult{Item: item, Found: true, Price: &core.EffectivePrice{
		Item: item, Price: decimal.RequireFromString("12.5"), Currency: "BRL",
		PricebookID: 3, PricebookName: "Tabela SP", EntryID: 8, Origin: core.OriginCompanyRegion,
	}}, nil
}

func (s *stubService) PerformAction(_ context.Context, id int, action core.Action) (*app.RevisionResult, error) {
	s.performed = action
	target, _ := core.TargetStatus(action)
	return &app.RevisionResult{Revision: &core.BudgetRevision{ID: id, BudgetID: 1, RevisionNumber: 2, Status: target}}, nil
}

func (s *stubService) TransitionRevision(_ context.Context, id int, target core.RevisionStatus) (*app.RevisionResult, error) {
	s.transition = target
	return &app.RevisionResult{Revision: &core.BudgetRevision{ID: id, BudgetID: 1, RevisionNumber: 2, Status: target}}, nil
}

func (s *stubService) ImportPricebooks(_ context.Context, doc app.PricebookImport) (*app.ImportResult, error) {
	s.imported = doc
	return &app.ImportResult{Pricebooks: []core.Pricebook{{ID: 1, Name: "Global", Type: core.ItemMaterial}}, Entries: 2}, nil
}

func (s *stubService) Promote(_ context.Context, _ app.PromoteRequest) (*app.ProjectResult, error) {
	return nil, s.promoteErr
}

func run(t *testing.T, svc app.ApplicationService, args ...string) (string, error) {
	t.Helper()
	opened := false
	root := NewRootCommand(func() (app.ApplicationService, error) {
		opened = true
		if svc == nil {
			return nil, errors.New("no database")
		}
		return svc, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if svc == nil && opened {
		t.Errorf("%v opened the service", args)
	}
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "resolve", "material", "42", "--company", "7", "--as-of", "2024-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if svc.resolved.CompanyID == nil || *svc.resolved.CompanyID != 7 {
		t.Errorf("company flag not passed: %+v", svc.resolved)
	}
	if svc.resolved.RegionID != nil || svc.resolved.ManufacturerID != nil {
		t.Errorf("unset flags must stay nil: %+v", svc.resolved)
	}
	if !strings.Contains(out, "12.50 BRL") || !strings.Contains(out, "EMPRESA_REGIAO") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := run(t, svc, "resolve", "material", "x"); err == nil {
		t.Error("non-numeric item id should fail")
	}
}

func TestPermsCommand_NoStorage(t *testing.T) {
	out, err := run(t, nil, "perms", "sent")
	if err != nil {
		t.Fatalf("perms: %v", err)
	}
	if !strings.Contains(out, "STATUS: SENT") || !strings.Contains(out, "approve              allowed") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "edit                 blocked") {
		t.Errorf("edit should be blocked for SENT:\n%s", out)
	}
}

func TestTransitionCommand(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "transition", "5", "approve")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if svc.performed != core.ActionApprove || !strings.Contains(out, "is now APPROVED") {
		t.Errorf("action path: performed=%q out=%s", svc.performed, out)
	}

	if _, err := run(t, svc, "transition", "5", "draft"); err != nil {
		t.Fatalf("status path: %v", err)
	}
	if svc.transition != core.RevisionDraft {
		t.Errorf("status path: got %q", svc.transition)
	}

	if _, err := run(t, svc, "transition", "5", "archive"); err == nil {
		t.Error("unknown target should fail")
	}
}

func TestImportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	doc := `{"pricebooks":[{"name":"Global","type":"MATERIAL","priority":10,
		"entries":[{"item_id":1,"price":"20.00","currency":"BRL"},{"item_id":2,"price":"3.10","currency":"BRL"}]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := &stubService{}
	out, err := run(t, svc, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(svc.imported.Pricebooks) != 1 || len(svc.imported.Pricebooks[0].Entries) != 2 {
		t.Fatalf("document not decoded: %+v", svc.imported)
	}
	if svc.imported.Pricebooks[0].Name != "Global" || svc.imported.Pricebooks[0].Type != core.ItemMaterial {
		t.Errorf("embedded pricebook fields not decoded: %+v", svc.imported.Pricebooks[0].PricebookInput)
	}
	if !strings.Contains(out, "Imported 1 pricebook(s), 2 entr(ies).") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPromoteCommand_LinkFailureHint(t *testing.T) {
	svc := &stubService{promoteErr: &core.LinkError{
		RevisionID: 9,
		Project:    &core.Project{ID: 31, OrderNumber: "PRJ-2024-00004"},
		Err:        errors.New("connection reset"),
	}}
	_, err := run(t, svc, "promote", "9")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "relink 9 31") {
		t.Errorf("missing recovery hint: %v", err)
	}
	var linkErr *core.LinkError
	if !errors.As(err, &linkErr) {
		t.Error("hint must keep the LinkError in the chain")
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, nil, "schema")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["pricebooks"]; !ok {
		t.Errorf("schema lacks pricebooks property: %v", schema)
	}
}
