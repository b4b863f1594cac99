package governance

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportAuditEvents renders the allowlisted audit trail as a spreadsheet.
// Export content follows policy: PII never appears (pinned off), and the
// metadata column is omitted entirely when competitor mentions are disallowed
// since free-form metadata is where those can surface.
func (s *GovernanceServiceImpl) ExportAuditEvents(ctx context.Context, projectID string) (*excelize.File, error) {
	policy, err := s.GetPolicy(ctx, projectID)
	if err != nil {
		return nil, err
	}

	events, err := s.AuditRepo.ListByProject(ctx, projectID, ReadableAuditEventTypes, "", 1000)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"Event Type", "Actor", "Resource Type", "Resource ID", "Created At"}
	if policy.AllowCompetitorMentionsInExports {
		headers = append(headers, "Metadata")
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, event := range events {
		values := []interface{}{
			string(event.EventType),
			event.ActorUserID,
			string(event.ResourceType),
			event.ResourceID,
			event.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if policy.AllowCompetitorMentionsInExports {
			values = append(values, fmt.Sprintf("%v", event.Metadata))
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}
