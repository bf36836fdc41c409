package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/archive --output domain/archive --outpkg archivemock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/unresolved --output domain/unresolved --outpkg unresolvedmock --filename repository_mock.go
