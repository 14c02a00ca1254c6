// Package di provides a minimal service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, resolving lazy
	// factories on first access. Panics if the name is unknown.
	Get(name string) any
}

// Container is the write side: services and factories are registered here.
type Container interface {
	ServiceRegistry

	// Register stores an already-constructed service.
	Register(name string, svc any)

	// RegisterFactory stores a lazy constructor, invoked once on first Get.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.Mutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if svc, ok := c.services[name]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service %q not registered", name))
	}
	// Resolve outside the lock so factories may Get their own dependencies.
	delete(c.factories, name)
	c.mu.Unlock()

	svc := factory(c)

	c.mu.Lock()
	c.services[name] = svc
	c.mu.Unlock()

	return svc
}

// Token is a typed handle for a registered service.
type Token[T any] struct {
	name string
}

// NewToken creates a token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// String returns the token name.
func (t Token[T]) String() string {
	return t.name
}

// RegisterToken registers a lazy factory under the token's name.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a token, panicking if the registered service has the
// wrong type.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}
