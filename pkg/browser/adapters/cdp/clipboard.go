package cdp

import "time"

const clipboardPollInterval = 50 * time.Millisecond

// clipboardShim records whatever the page writes to the clipboard into
// window.__pagechatClip. It hooks both the async clipboard API and the
// legacy copy event, and is installed at most once per document.
const clipboardShim = `() => {
  window.__pagechatClip = "";
  if (window.__pagechatShim) return true;
  window.__pagechatShim = true;

  const store = (t) => {
    if (typeof t === "string" && t.length > 0) window.__pagechatClip = t;
  };

  const cb = navigator.clipboard;
  if (cb) {
    const writeText = cb.writeText ? cb.writeText.bind(cb) : null;
    cb.writeText = (t) => {
      store(t);
      return writeText ? writeText(t).catch(() => {}) : Promise.resolve();
    };
    const write = cb.write ? cb.write.bind(cb) : null;
    cb.write = async (items) => {
      try {
        outer: for (const item of items || []) {
          for (const type of ["text/markdown", "text/plain"]) {
            if (item.types && item.types.includes(type)) {
              const blob = await item.getType(type);
              store(await blob.text());
              break outer;
            }
          }
        }
      } catch (e) {}
      return write ? write(items).catch(() => {}) : undefined;
    };
  }

  window.addEventListener("copy", (e) => {
    const data = e.clipboardData;
    const t = data && (data.getData("text/markdown") || data.getData("text/plain"));
    if (t) {
      store(t);
      return;
    }
    const sel = document.getSelection();
    if (sel) store(sel.toString());
  });
  return true;
}`

const clipboardRead = `() => {
  const t = window.__pagechatClip;
  return typeof t === "string" ? t : "";
}`
