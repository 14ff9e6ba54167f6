// internal/di/container_test.go
package di

import (
	"testing"
)

// TestContainerRegisterAndGet 测试服务注册与获取
func TestContainerRegisterAndGet(t *testing.T) {
	container := NewContainer()

	type dummy struct{ name string }
	container.Register("svc", &dummy{name: "a"})

	got, ok := container.Get("svc").(*dummy)
	if !ok || got.name != "a" {
		t.Errorf("expected registered service back, got %v", container.Get("svc"))
	}

	if container.Get("missing") != nil {
		t.Error("expected nil for unknown service")
	}
}

// TestContainerHas 测试服务存在性检查
func TestContainerHas(t *testing.T) {
	container := NewContainer()

	if container.Has("svc") {
		t.Error("expected false before register")
	}
	container.Register("svc", 42)
	if !container.Has("svc") {
		t.Error("expected true after register")
	}
}

// TestContainerOverwrite 测试同名注册覆盖旧实例
func TestContainerOverwrite(t *testing.T) {
	container := NewContainer()

	container.Register("svc", "old")
	container.Register("svc", "new")

	if container.Get("svc") != "new" {
		t.Errorf("expected new instance, got %v", container.Get("svc"))
	}
}

// TestContainerClear 测试清空容器
func TestContainerClear(t *testing.T) {
	container := NewContainer()
	container.Register("a", 1)
	container.Register("b", 2)

	if len(container.GetNames()) != 2 {
		t.Fatalf("expected 2 names, got %v", container.GetNames())
	}

	container.Clear()
	if len(container.GetNames()) != 0 {
		t.Errorf("expected empty container after clear, got %v", container.GetNames())
	}
	if container.Has("a") {
		t.Error("cleared container should not have services")
	}
}

// TestGetContainerSingleton 测试全局容器单例
func TestGetContainerSingleton(t *testing.T) {
	first := GetContainer()
	second := GetContainer()

	if first != second {
		t.Error("expected same global container instance")
	}
}
