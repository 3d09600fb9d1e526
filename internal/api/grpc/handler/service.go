package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names on the wire. Messages are google.protobuf.Struct.
const (
	AuthServiceName  = "authcore.v1.Auth"
	UsersServiceName = "authcore.v1.Users"
)

// Full method names, used by the router for authentication and permission
// rules.
const (
	MethodLogin           = "/" + AuthServiceName + "/Login"
	MethodRefresh         = "/" + AuthServiceName + "/Refresh"
	MethodLogout          = "/" + AuthServiceName + "/Logout"
	MethodLogoutAll       = "/" + AuthServiceName + "/LogoutAll"
	MethodMe              = "/" + AuthServiceName + "/Me"
	MethodPermissions     = "/" + AuthServiceName + "/Permissions"
	MethodCheckPermission = "/" + AuthServiceName + "/CheckPermission"

	MethodCreateUser   = "/" + UsersServiceName + "/CreateUser"
	MethodGetUser      = "/" + UsersServiceName + "/GetUser"
	MethodListUsers    = "/" + UsersServiceName + "/ListUsers"
	MethodSetUserRoles = "/" + UsersServiceName + "/SetUserRoles"
	MethodUpdateUser   = "/" + UsersServiceName + "/UpdateUser"
	MethodDeleteUser   = "/" + UsersServiceName + "/DeleteUser"
)

// AuthServer is the server API of authcore.v1.Auth.
type AuthServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LogoutAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Permissions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckPermission(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UsersServer is the server API of authcore.v1.Users.
type UsersServer interface {
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetUserRoles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// methodDesc adapts a handler method to grpc.MethodDesc, running it through
// the server's interceptor chain.
func methodDesc(service, name string, bind func(srv interface{}) unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := bind(srv)
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(ctx, req.(*structpb.Struct))
			})
		},
	}
}

func authMethod(name string, bind func(AuthServer) unaryMethod) grpc.MethodDesc {
	return methodDesc(AuthServiceName, name, func(srv interface{}) unaryMethod {
		return bind(srv.(AuthServer))
	})
}

func usersMethod(name string, bind func(UsersServer) unaryMethod) grpc.MethodDesc {
	return methodDesc(UsersServiceName, name, func(srv interface{}) unaryMethod {
		return bind(srv.(UsersServer))
	})
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		authMethod("Login", func(s AuthServer) unaryMethod { return s.Login }),
		authMethod("Refresh", func(s AuthServer) unaryMethod { return s.Refresh }),
		authMethod("Logout", func(s AuthServer) unaryMethod { return s.Logout }),
		authMethod("LogoutAll", func(s AuthServer) unaryMethod { return s.LogoutAll }),
		authMethod("Me", func(s AuthServer) unaryMethod { return s.Me }),
		authMethod("Permissions", func(s AuthServer) unaryMethod { return s.Permissions }),
		authMethod("CheckPermission", func(s AuthServer) unaryMethod { return s.CheckPermission }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authcore/v1/auth.proto",
}

var usersServiceDesc = grpc.ServiceDesc{
	ServiceName: UsersServiceName,
	HandlerType: (*UsersServer)(nil),
	Methods: []grpc.MethodDesc{
		usersMethod("CreateUser", func(s UsersServer) unaryMethod { return s.CreateUser }),
		usersMethod("GetUser", func(s UsersServer) unaryMethod { return s.GetUser }),
		usersMethod("ListUsers", func(s UsersServer) unaryMethod { return s.ListUsers }),
		usersMethod("SetUserRoles", func(s UsersServer) unaryMethod { return s.SetUserRoles }),
		usersMethod("UpdateUser", func(s UsersServer) unaryMethod { return s.UpdateUser }),
		usersMethod("DeleteUser", func(s UsersServer) unaryMethod { return s.DeleteUser }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authcore/v1/users.proto",
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&authServiceDesc, srv)
}

func RegisterUsersServer(s grpc.ServiceRegistrar, srv UsersServer) {
	s.RegisterService(&usersServiceDesc, srv)
}
