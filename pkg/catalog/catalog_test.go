package catalog

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/registry"
	"digital.vasic.provision/pkg/task"
)

func testConfig() *task.Config {
	return task.NewConfig(task.ConfigValues{
		ToolsRoot:        "/opt/gs",
		ConfDir:          "/opt/conf",
		UserAutorunDir:   "/autorun/me",
		SharedAutorunDir: "/autorun/all",
		FontsDir:         "/fonts",
	})
}

func run(
	t *testing.T,
	sys adapter.Adapter,
	cfg *task.Config,
	mode engine.Mode,
	tasks ...*task.Task,
) []*task.Result {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, Register(reg, tasks))
	results, err := engine.New(engine.WithMode(mode)).RunPass(
		context.Background(), reg, cfg, sys,
	)
	require.NoError(t, err)
	require.Len(t, results, len(tasks))
	return results
}

func apply(t *testing.T, sys adapter.Adapter, tasks ...*task.Task) []*task.Result {
	t.Helper()
	return run(t, sys, testConfig(), engine.ModeApply, tasks...)
}

func TestRegistryValue(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	tk := RegistryValue("tray", adapter.ScopeUser, keyExplorer, "EnableAutoTray", adapter.DWORDValue(0))

	require.NoError(t, sys.SetKeyValue(ctx, adapter.ScopeUser, keyExplorer, "EnableAutoTray", adapter.StringValue("0")))
	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	v, found, err := sys.ProbeKeyValue(ctx, adapter.ScopeUser, keyExplorer, "enableautotray")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, adapter.DWORDValue(0), v)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestRegistryValue_MachineScopeNeedsElevation(t *testing.T) {
	sys := adapter.NewMemory()
	sys.SetElevated(false)

	r := apply(t, sys, RegistryValue("restore", adapter.ScopeMachine,
		keySystemRestore, "DisableSR", adapter.DWORDValue(1)))
	assert.Equal(t, task.StatusFailed, r[0].Status)
	assert.True(t, r[0].ElevationRequired)
}

func TestInstalledProbe(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	tk := InstalledProbe("office", keyOffice, "Path")

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusManualActionRequired, r[0].Status)

	require.NoError(t, sys.SetKeyValue(ctx, adapter.ScopeMachine, keyOffice, "Path", adapter.DWORDValue(1)))
	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusManualActionRequired, r[0].Status)

	require.NoError(t, sys.SetKeyValue(ctx, adapter.ScopeMachine, keyOffice, "Path", adapter.StringValue(`C:\Office14`)))
	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestInstalledProbe_ProbeFault(t *testing.T) {
	sys := adapter.NewMemory()
	sys.FailOn(adapter.OpProbeKeyValue, assert.AnError)

	r := apply(t, sys, InstalledProbe("office", keyOffice, "Path"))
	assert.Equal(t, task.StatusProbeFailed, r[0].Status)
}

func TestDirectoryProbe(t *testing.T) {
	sys := adapter.NewMemory()
	tk := DirectoryProbe("ime", Setting(SettingIMEDir, `C:\Program Files\freeime`))

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusManualActionRequired, r[0].Status)

	sys.WriteFile(`C:\Program Files\freeime\ime.exe`, []byte("x"))
	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)

	r = apply(t, sys, DirectoryProbe("unset", Setting("missing", "")))
	assert.Equal(t, task.StatusManualActionRequired, r[0].Status)
}

func TestEnvVar(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	tk := EnvVar("thirdsrc", "BAIDUHI_THIRDSRC", Setting(SettingThirdSrc, `d:\thirdsrc`), adapter.ScopeMachine)

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	v, found, err := sys.GetEnvVar(ctx, "BAIDUHI_THIRDSRC")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `d:\thirdsrc`, v)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestEnvVar_UnresolvedValue(t *testing.T) {
	r := apply(t, adapter.NewMemory(),
		EnvVar("x", "X_VAR", Setting("nope", ""), adapter.ScopeMachine))
	assert.Equal(t, task.StatusFailed, r[0].Status)
	assert.Contains(t, r[0].Error, "prerequisite not installed")
}

func TestPathEntries(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	require.NoError(t, sys.SetEnvVar(ctx, "PATH", `C:\Windows;/OPT/GS/svn/bin;;`, adapter.ScopeMachine))
	tk := PathEntries("path", adapter.ScopeMachine,
		ToolsPath("svn", "bin"), ToolsPath("cvsnt"), ToolsPath("psoft", "cmdline"))

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	v, _, err := sys.GetEnvVar(ctx, "PATH")
	require.NoError(t, err)
	assert.Equal(t, `C:\Windows;/OPT/GS/svn/bin;/opt/gs/cvsnt;/opt/gs/psoft/cmdline`, v)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestPathEntries_UserPathDoesNotHideMachinePath(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	require.NoError(t, sys.SetEnvVar(ctx, "PATH", "/usr/bin", adapter.ScopeUser))
	tk := PathEntries("set path", adapter.ScopeMachine, ToolsPath("svn", "bin"))

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)

	machine, _, err := sys.GetEnvVarScope(ctx, "PATH", adapter.ScopeMachine)
	require.NoError(t, err)
	assert.Equal(t, "/opt/gs/svn/bin", machine)
	user, _, err := sys.GetEnvVarScope(ctx, "PATH", adapter.ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin", user)
}

func TestEnvVar_OtherScopeDoesNotSatisfy(t *testing.T) {
	ctx := context.Background()
	sys := adapter.NewMemory()
	require.NoError(t, sys.SetEnvVar(ctx, "BAIDUHI_THIRDSRC", "elsewhere", adapter.ScopeUser))
	tk := EnvVar("thirdsrc", "BAIDUHI_THIRDSRC", Setting(SettingThirdSrc, `d:\thirdsrc`), adapter.ScopeMachine)

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestPathEntries_NotElevated(t *testing.T) {
	sys := adapter.NewMemory()
	sys.SetElevated(false)

	r := apply(t, sys, PathEntries("path", adapter.ScopeMachine, ToolsPath("bin")))
	assert.Equal(t, task.StatusFailed, r[0].Status)
	assert.True(t, r[0].ElevationRequired)
}

func TestAutorunShortcut(t *testing.T) {
	sys := adapter.NewMemory()
	tk := AutorunShortcut("autoit", "autoit", ShortcutSpec{
		File:    "AutoIt.lnk",
		Target:  ToolsPath("psoft", "AutoIt", "AutoIt3.exe"),
		WorkDir: ToolsPath("psoft", "AutoIt"),
		Args:    `"hotkey.au3"`,
	})

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	sc, ok := sys.Shortcut("/autorun/all/AutoIt.lnk")
	require.True(t, ok)
	assert.Equal(t, "/opt/gs/psoft/AutoIt/AutoIt3.exe", sc.Target)
	assert.Equal(t, "/opt/gs/psoft/AutoIt", sc.WorkDir)
	assert.Equal(t, `"hotkey.au3"`, sc.Args)

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestAutorunShortcut_UserFolderCounts(t *testing.T) {
	sys := adapter.NewMemory()
	sys.WriteFile("/autorun/me/HANDYRUN.lnk", []byte("x"))

	r := apply(t, sys, AutorunShortcut("handyrun", "handyrun", ShortcutSpec{
		File: "HandyRun.lnk", Target: ToolsPath("HandyRun", "HandyRun.exe"),
	}))
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestAutorunShortcut_NoSharedFolder(t *testing.T) {
	cfg := task.NewConfig(task.ConfigValues{ToolsRoot: "/opt/gs"})
	r := run(t, adapter.NewMemory(), cfg, engine.ModeApply,
		AutorunShortcut("autoit", "autoit", ShortcutSpec{File: "a.lnk", Target: ToolsPath("a")}))
	assert.Equal(t, task.StatusFailed, r[0].Status)
	assert.Contains(t, r[0].Error, "prerequisite not installed")
}

func TestGlob(t *testing.T) {
	re := regexp.MustCompile("(?i)autoit")
	assert.Equal(t, []string{"AutoIt.lnk", "my-autoit"},
		Glob([]string{"AutoIt.lnk", "other.lnk", "my-autoit"}, re))
	assert.Empty(t, Glob(nil, re))
}

func TestFonts(t *testing.T) {
	sys := adapter.NewMemory()
	sys.WriteFile("/opt/conf/fonts/Anonymous.ttf", []byte("anon"))
	sys.WriteFile("/opt/conf/fonts/Coder.fon", []byte("coder"))
	sys.WriteFile("/fonts/Coder.fon", []byte("already"))
	tk := Fonts("fonts", "Anonymous.ttf", "Coder.fon")

	r := apply(t, sys, tk)
	assert.Equal(t, task.StatusFixed, r[0].Status)

	data, ok := sys.ReadFile("/fonts/Anonymous.ttf")
	require.True(t, ok)
	assert.Equal(t, "anon", string(data))
	data, _ = sys.ReadFile("/fonts/Coder.fon")
	assert.Equal(t, "already", string(data))

	r = apply(t, sys, tk)
	assert.Equal(t, task.StatusSatisfied, r[0].Status)
}

func TestFonts_MissingSource(t *testing.T) {
	r := apply(t, adapter.NewMemory(), Fonts("fonts", "Anonymous.ttf"))
	assert.Equal(t, task.StatusFailed, r[0].Status)
	assert.Contains(t, r[0].Error, "install font Anonymous.ttf")
}

func TestReminder(t *testing.T) {
	tk := Reminder("activate windows", "by hand")
	assert.True(t, tk.IsReminder())

	r := apply(t, adapter.NewMemory(), tk)
	assert.Equal(t, task.StatusManualActionRequired, r[0].Status)
}
