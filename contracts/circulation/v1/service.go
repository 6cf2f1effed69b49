package circulationv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "library.circulation.v1.CirculationService"

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CirculationServiceServer is the server API for CirculationService.
type CirculationServiceServer interface {
	RequestBorrow(context.Context, *RequestBorrowRequest) (*RequestBorrowResponse, error)
	DecideRequest(context.Context, *DecideRequestRequest) (*DecideRequestResponse, error)
	RenewLoan(context.Context, *RenewLoanRequest) (*RenewLoanResponse, error)
	ReturnBook(context.Context, *ReturnBookRequest) (*ReturnBookResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	ListBooks(context.Context, *ListBooksRequest) (*ListBooksResponse, error)
	GetBook(context.Context, *GetBookRequest) (*GetBookResponse, error)
	CreateBook(context.Context, *CreateBookRequest) (*CreateBookResponse, error)
	UpdateBook(context.Context, *UpdateBookRequest) (*UpdateBookResponse, error)
	DeleteBook(context.Context, *DeleteBookRequest) (*DeleteBookResponse, error)
	ListCategories(context.Context, *ListCategoriesRequest) (*ListCategoriesResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error)
	GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	UpdateUserRole(context.Context, *UpdateUserRoleRequest) (*UpdateUserRoleResponse, error)
	GetDashboardStats(context.Context, *GetDashboardStatsRequest) (*GetDashboardStatsResponse, error)
	GetReport(context.Context, *GetReportRequest) (*GetReportResponse, error)
	ExportHistory(context.Context, *ExportHistoryRequest) (*ExportHistoryResponse, error)
}

// UnimplementedCirculationServiceServer can be embedded to have forward compatible implementations.
type UnimplementedCirculationServiceServer struct{}

func (UnimplementedCirculationServiceServer) RequestBorrow(context.Context, *RequestBorrowRequest) (*RequestBorrowResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestBorrow not implemented")
}

func (UnimplementedCirculationServiceServer) DecideRequest(context.Context, *DecideRequestRequest) (*DecideRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DecideRequest not implemented")
}

func (UnimplementedCirculationServiceServer) RenewLoan(context.Context, *RenewLoanRequest) (*RenewLoanResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RenewLoan not implemented")
}

func (UnimplementedCirculationServiceServer) ReturnBook(context.Context, *ReturnBookRequest) (*ReturnBookResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReturnBook not implemented")
}

func (UnimplementedCirculationServiceServer) GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRecord not implemented")
}

func (UnimplementedCirculationServiceServer) ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}

func (UnimplementedCirculationServiceServer) ListBooks(context.Context, *ListBooksRequest) (*ListBooksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBooks not implemented")
}

func (UnimplementedCirculationServiceServer) GetBook(context.Context, *GetBookRequest) (*GetBookResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBook not implemented")
}

func (UnimplementedCirculationServiceServer) CreateBook(context.Context, *CreateBookRequest) (*CreateBookResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateBook not implemented")
}

func (UnimplementedCirculationServiceServer) UpdateBook(context.Context, *UpdateBookRequest) (*UpdateBookResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateBook not implemented")
}

func (UnimplementedCirculationServiceServer) DeleteBook(context.Context, *DeleteBookRequest) (*DeleteBookResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteBook not implemented")
}

func (UnimplementedCirculationServiceServer) ListCategories(context.Context, *ListCategoriesRequest) (*ListCategoriesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListCategories not implemented")
}

func (UnimplementedCirculationServiceServer) RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterUser not implemented")
}

func (UnimplementedCirculationServiceServer) Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Authenticate not implemented")
}

func (UnimplementedCirculationServiceServer) GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
}

func (UnimplementedCirculationServiceServer) ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUsers not implemented")
}

func (UnimplementedCirculationServiceServer) UpdateUserRole(context.Context, *UpdateUserRoleRequest) (*UpdateUserRoleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateUserRole not implemented")
}

func (UnimplementedCirculationServiceServer) GetDashboardStats(context.Context, *GetDashboardStatsRequest) (*GetDashboardStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDashboardStats not implemented")
}

func (UnimplementedCirculationServiceServer) GetReport(context.Context, *GetReportRequest) (*GetReportResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReport not implemented")
}

func (UnimplementedCirculationServiceServer) ExportHistory(context.Context, *ExportHistoryRequest) (*ExportHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ExportHistory not implemented")
}

// RegisterCirculationServiceServer registers srv with s.
func RegisterCirculationServiceServer(s grpc.ServiceRegistrar, srv CirculationServiceServer) {
	s.RegisterService(&CirculationService_ServiceDesc, srv)
}

// CirculationService_ServiceDesc is the grpc.ServiceDesc for CirculationService.
var CirculationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CirculationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestBorrow", Handler: unaryHandler("RequestBorrow", CirculationServiceServer.RequestBorrow)},
		{MethodName: "DecideRequest", Handler: unaryHandler("DecideRequest", CirculationServiceServer.DecideRequest)},
		{MethodName: "RenewLoan", Handler: unaryHandler("RenewLoan", CirculationServiceServer.RenewLoan)},
		{MethodName: "ReturnBook", Handler: unaryHandler("ReturnBook", CirculationServiceServer.ReturnBook)},
		{MethodName: "GetRecord", Handler: unaryHandler("GetRecord", CirculationServiceServer.GetRecord)},
		{MethodName: "ListRecords", Handler: unaryHandler("ListRecords", CirculationServiceServer.ListRecords)},
		{MethodName: "ListBooks", Handler: unaryHandler("ListBooks", CirculationServiceServer.ListBooks)},
		{MethodName: "GetBook", Handler: unaryHandler("GetBook", CirculationServiceServer.GetBook)},
		{MethodName: "CreateBook", Handler: unaryHandler("CreateBook", CirculationServiceServer.CreateBook)},
		{MethodName: "UpdateBook", Handler: unaryHandler("UpdateBook", CirculationServiceServer.UpdateBook)},
		{MethodName: "DeleteBook", Handler: unaryHandler("DeleteBook", CirculationServiceServer.DeleteBook)},
		{MethodName: "ListCategories", Handler: unaryHandler("ListCategories", CirculationServiceServer.ListCategories)},
		{MethodName: "RegisterUser", Handler: unaryHandler("RegisterUser", CirculationServiceServer.RegisterUser)},
		{MethodName: "Authenticate", Handler: unaryHandler("Authenticate", CirculationServiceServer.Authenticate)},
		{MethodName: "GetUser", Handler: unaryHandler("GetUser", CirculationServiceServer.GetUser)},
		{MethodName: "ListUsers", Handler: unaryHandler("ListUsers", CirculationServiceServer.ListUsers)},
		{MethodName: "UpdateUserRole", Handler: unaryHandler("UpdateUserRole", CirculationServiceServer.UpdateUserRole)},
		{MethodName: "GetDashboardStats", Handler: unaryHandler("GetDashboardStats", CirculationServiceServer.GetDashboardStats)},
		{MethodName: "GetReport", Handler: unaryHandler("GetReport", CirculationServiceServer.GetReport)},
		{MethodName: "ExportHistory", Handler: unaryHandler("ExportHistory", CirculationServiceServer.ExportHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "circulation/v1/service.go",
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](method string, call func(CirculationServiceServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := FullMethod(method)
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CirculationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CirculationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CirculationServiceClient is the client API for CirculationService.
type CirculationServiceClient interface {
	RequestBorrow(ctx context.Context, in *RequestBorrowRequest, opts ...grpc.CallOption) (*RequestBorrowResponse, error)
	DecideRequest(ctx context.Context, in *DecideRequestRequest, opts ...grpc.CallOption) (*DecideRequestResponse, error)
	RenewLoan(ctx context.Context, in *RenewLoanRequest, opts ...grpc.CallOption) (*RenewLoanResponse, error)
	ReturnBook(ctx context.Context, in *ReturnBookRequest, opts ...grpc.CallOption) (*ReturnBookResponse, error)
	GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error)
	ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error)
	ListBooks(ctx context.Context, in *ListBooksRequest, opts ...grpc.CallOption) (*ListBooksResponse, error)
	GetBook(ctx context.Context, in *GetBookRequest, opts ...grpc.CallOption) (*GetBookResponse, error)
	CreateBook(ctx context.Context, in *CreateBookRequest, opts ...grpc.CallOption) (*CreateBookResponse, error)
	UpdateBook(ctx context.Context, in *UpdateBookRequest, opts ...grpc.CallOption) (*UpdateBookResponse, error)
	DeleteBook(ctx context.Context, in *DeleteBookRequest, opts ...grpc.CallOption) (*DeleteBookResponse, error)
	ListCategories(ctx context.Context, in *ListCategoriesRequest, opts ...grpc.CallOption) (*ListCategoriesResponse, error)
	RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error)
	Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*AuthenticateResponse, error)
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error)
	UpdateUserRole(ctx context.Context, in *UpdateUserRoleRequest, opts ...grpc.CallOption) (*UpdateUserRoleResponse, error)
	GetDashboardStats(ctx context.Context, in *GetDashboardStatsRequest, opts ...grpc.CallOption) (*GetDashboardStatsResponse, error)
	GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*GetReportResponse, error)
	ExportHistory(ctx context.Context, in *ExportHistoryRequest, opts ...grpc.CallOption) (*ExportHistoryResponse, error)
}

type circulationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCirculationServiceClient returns a client that speaks the json codec over cc.
func NewCirculationServiceClient(cc grpc.ClientConnInterface) CirculationServiceClient {
	return &circulationServiceClient{cc: cc}
}

func (c *circulationServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

func (c *circulationServiceClient) RequestBorrow(ctx context.Context, in *RequestBorrowRequest, opts ...grpc.CallOption) (*RequestBorrowResponse, error) {
	out := new(RequestBorrowResponse)
	if err := c.invoke(ctx, "RequestBorrow", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) DecideRequest(ctx context.Context, in *DecideRequestRequest, opts ...grpc.CallOption) (*DecideRequestResponse, error) {
	out := new(DecideRequestResponse)
	if err := c.invoke(ctx, "DecideRequest", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) RenewLoan(ctx context.Context, in *RenewLoanRequest, opts ...grpc.CallOption) (*RenewLoanResponse, error) {
	out := new(RenewLoanResponse)
	if err := c.invoke(ctx, "RenewLoan", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ReturnBook(ctx context.Context, in *ReturnBookRequest, opts ...grpc.CallOption) (*ReturnBookResponse, error) {
	out := new(ReturnBookResponse)
	if err := c.invoke(ctx, "ReturnBook", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	out := new(GetRecordResponse)
	if err := c.invoke(ctx, "GetRecord", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	out := new(ListRecordsResponse)
	if err := c.invoke(ctx, "ListRecords", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ListBooks(ctx context.Context, in *ListBooksRequest, opts ...grpc.CallOption) (*ListBooksResponse, error) {
	out := new(ListBooksResponse)
	if err := c.invoke(ctx, "ListBooks", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) GetBook(ctx context.Context, in *GetBookRequest, opts ...grpc.CallOption) (*GetBookResponse, error) {
	out := new(GetBookResponse)
	if err := c.invoke(ctx, "GetBook", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) CreateBook(ctx context.Context, in *CreateBookRequest, opts ...grpc.CallOption) (*CreateBookResponse, error) {
	out := new(CreateBookResponse)
	if err := c.invoke(ctx, "CreateBook", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) UpdateBook(ctx context.Context, in *UpdateBookRequest, opts ...grpc.CallOption) (*UpdateBookResponse, error) {
	out := new(UpdateBookResponse)
	if err := c.invoke(ctx, "UpdateBook", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) DeleteBook(ctx context.Context, in *DeleteBookRequest, opts ...grpc.CallOption) (*DeleteBookResponse, error) {
	out := new(DeleteBookResponse)
	if err := c.invoke(ctx, "DeleteBook", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ListCategories(ctx context.Context, in *ListCategoriesRequest, opts ...grpc.CallOption) (*ListCategoriesResponse, error) {
	out := new(ListCategoriesResponse)
	if err := c.invoke(ctx, "ListCategories", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*RegisterUserResponse, error) {
	out := new(RegisterUserResponse)
	if err := c.invoke(ctx, "RegisterUser", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*AuthenticateResponse, error) {
	out := new(AuthenticateResponse)
	if err := c.invoke(ctx, "Authenticate", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error) {
	out := new(GetUserResponse)
	if err := c.invoke(ctx, "GetUser", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	out := new(ListUsersResponse)
	if err := c.invoke(ctx, "ListUsers", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) UpdateUserRole(ctx context.Context, in *UpdateUserRoleRequest, opts ...grpc.CallOption) (*UpdateUserRoleResponse, error) {
	out := new(UpdateUserRoleResponse)
	if err := c.invoke(ctx, "UpdateUserRole", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) GetDashboardStats(ctx context.Context, in *GetDashboardStatsRequest, opts ...grpc.CallOption) (*GetDashboardStatsResponse, error) {
	out := new(GetDashboardStatsResponse)
	if err := c.invoke(ctx, "GetDashboardStats", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*GetReportResponse, error) {
	out := new(GetReportResponse)
	if err := c.invoke(ctx, "GetReport", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *circulationServiceClient) ExportHistory(ctx context.Context, in *ExportHistoryRequest, opts ...grpc.CallOption) (*ExportHistoryResponse, error) {
	out := new(ExportHistoryResponse)
	if err := c.invoke(ctx, "ExportHistory", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
