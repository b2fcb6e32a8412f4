package adminapi

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/flowcore/nicoffload/pkg/core"
	"github.com/flowcore/nicoffload/pkg/offload"
)

type fakeNetdev struct {
	dpPort uint32
	typ    string
}

func (f *fakeNetdev) DpPort() uint32            { return f.dpPort }
func (f *fakeNetdev) NumRxQueues() uint16       { return 1 }
func (f *fakeNetdev) HwPortID() uint16          { return 0 }
func (f *fakeNetdev) IsUplink() bool            { return f.typ == "dpdk" }
func (f *fakeNetdev) TypeString() string        { return f.typ }
func (f *fakeNetdev) PopHeader(p []byte) []byte { return p }

type fakeDriver struct{}

func (d *fakeDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	return 1, nil
}
func (d *fakeDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	return nil
}

func dialClient(t *testing.T, lis *bufconn.Listener) *grpc.ClientConn {
	t.Helper()
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	return cc
}

func TestListPortsAndGetRegistryStats(t *testing.T) {
	c := core.New(&fakeDriver{}, 1<<20)
	defer c.Close()
	require.NoError(t, c.PortAdd(&fakeNetdev{dpPort: 1, typ: "dpdk"}, 1))

	lis := bufconn.Listen(1024 * 1024)
	srv := NewServer("", c)
	go func() { _ = srv.gs.Serve(lis) }()
	defer srv.Stop()

	cc := dialClient(t, lis)
	defer cc.Close()
	client := NewClient(cc)

	ports, err := client.ListPorts(context.Background(), &ListPortsRequest{})
	require.NoError(t, err)
	require.Len(t, ports.Ports, 1)
	assert.Equal(t, uint32(1), ports.Ports[0].DpPort)

	stats, err := client.GetRegistryStats(context.Background(), &GetRegistryStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ports)
}

func TestGetFlowNotFound(t *testing.T) {
	c := core.New(&fakeDriver{}, 1<<20)
	defer c.Close()

	lis := bufconn.Listen(1024 * 1024)
	srv := NewServer("", c)
	go func() { _ = srv.gs.Serve(lis) }()
	defer srv.Stop()

	cc := dialClient(t, lis)
	defer cc.Close()
	client := NewClient(cc)

	resp, err := client.GetFlow(context.Background(), &GetFlowRequest{FlowID: offload.NewFlowID().String()})
	require.NoError(t, err)
	assert.False(t, resp.Found)
}
