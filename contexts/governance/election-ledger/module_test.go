package electionledger

import (
	"context"
	"strings"
	"testing"

	"electionkeeper/contexts/governance/election-ledger/application/commands"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	ledgerhttp "electionkeeper/contexts/governance/election-ledger/transport/http"
)

func TestNewModuleDefaultsRevoteAccounting(t *testing.T) {
	module := NewModule(Dependencies{Accounting: "double"})
	if module.Handler.Commands.Accounting != entities.RevoteReplace {
		t.Fatalf("expected replace accounting, got %q", module.Handler.Commands.Accounting)
	}
	module = NewModule(Dependencies{Accounting: entities.RevoteAccumulate})
	if module.Handler.Commands.Accounting != entities.RevoteAccumulate {
		t.Fatalf("expected accumulate accounting, got %q", module.Handler.Commands.Accounting)
	}
}

func TestNewModuleSubscribesAuditToLedgerTopics(t *testing.T) {
	module := NewModule(Dependencies{ConsumerGroup: "audit-cg"})
	if len(module.Audit.Topics) != len(commands.EventTypes()) || module.Audit.ConsumerGroup != "audit-cg" {
		t.Fatalf("unexpected audit wiring %+v", module.Audit)
	}
}

func TestInMemoryModuleRejectedCommandWritesNothing(t *testing.T) {
	module := NewInMemoryModule(nil)
	if module.Store == nil {
		t.Fatal("expected memory store on module")
	}
	_, err := module.Handler.ExecuteCommandHandler(context.Background(), strings.Repeat("ad", 32), ledgerhttp.CommandRequest{
		Method: "deploy",
		Args:   nil,
	})
	if err == nil {
		t.Fatal("expected missing argument error for deploy without a window")
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no outbox rows after a rejected command, got %d err=%v", len(pending), err)
	}
}
