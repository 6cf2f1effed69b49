package grpc

import (
	"context"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/repo"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultTopBorrowers = 5

// GetDashboardStats returns library-wide counters and, when a user is named, their dashboard
func (s *CirculationServer) GetDashboardStats(ctx context.Context, req *pb.GetDashboardStatsRequest) (*pb.GetDashboardStatsResponse, error) {
	now := s.ledger.Now()
	stats, err := s.reports.DashboardStats(ctx, now)
	if err != nil {
		return nil, s.toStatus("load dashboard stats", err)
	}
	resp := &pb.GetDashboardStatsResponse{Stats: statsToPB(stats)}

	if req.UserID != "" {
		d, err := s.reports.UserDashboard(ctx, req.UserID, now)
		if err != nil {
			return nil, s.toStatus("load user dashboard", err)
		}
		resp.User = userDashboardToPB(d)
	}
	return resp, nil
}

// GetReport returns stats, category breakdown and the most active borrowers
func (s *CirculationServer) GetReport(ctx context.Context, req *pb.GetReportRequest) (*pb.GetReportResponse, error) {
	topN := int(req.TopN)
	if topN <= 0 {
		topN = defaultTopBorrowers
	}
	report, err := s.reports.Report(ctx, s.ledger.Now(), topN)
	if err != nil {
		return nil, s.toStatus("build report", err)
	}

	cats := make([]*pb.CategoryStat, len(report.Categories))
	for i, c := range report.Categories {
		cats[i] = &pb.CategoryStat{Name: c.Name, Count: c.Count, Percentage: int32(c.Percentage)}
	}
	top := make([]*pb.UserActivity, len(report.TopBorrowers))
	for i, u := range report.TopBorrowers {
		top[i] = &pb.UserActivity{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: string(u.Role), BorrowCount: u.BorrowCount}
	}
	return &pb.GetReportResponse{
		Stats:        statsToPB(&report.Stats),
		Categories:   cats,
		TopBorrowers: top,
		GeneratedAt:  report.GeneratedAt,
	}, nil
}

// ExportHistory writes the matching borrowing history to the export store. Staff only.
func (s *CirculationServer) ExportHistory(ctx context.Context, req *pb.ExportHistoryRequest) (*pb.ExportHistoryResponse, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	st := db.Status(req.Status)
	if st != "" && !st.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status)
	}
	actor, err := s.requireStaff(ctx, req.ActorID)
	if err != nil {
		return nil, s.toStatus("export history", err)
	}

	res, err := s.exporter.ExportHistory(ctx, repo.HistoryFilter{UserID: req.UserID, Query: req.Query, Status: st})
	if err != nil {
		return nil, s.toStatus("export history", err)
	}

	s.log.Info("History export requested", zap.String("actor_id", actor.ID), zap.String("key", res.Key), zap.Int("rows", res.Rows))
	return &pb.ExportHistoryResponse{Key: res.Key, URL: res.URL, Rows: int32(res.Rows)}, nil
}
